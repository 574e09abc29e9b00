// Package ffprobe reads stream properties of media files.
package ffprobe

import (
	"errors"
	"time"
)

const (
	name = "ffprobe"
	// Slow hard-drives spinning up or network retrieved resources may cause timeouts if too aggressive.
	timeout = 60 * time.Second
)

var (
	ErrNoAudioStream = errors.New("audio stream not found")
	ErrInvalidStream = errors.New("invalid stream properties")
)
