package ffmpeg

import "time"

const (
	name = "ffmpeg"
	// Decoding a long file to float PCM on a slow disk takes a while.
	timeout = 5 * time.Minute
)
