package ffmpeg

import (
	"strconv"

	"github.com/farcloser/phonometer/internal/types"
)

// formatSpec returns the raw muxer and codec names for a PCM layout, e.g. f32le/pcm_f32le or s16le/pcm_s16le.
func formatSpec(format *types.PCMFormat) (muxer, codec string) {
	if format.Float {
		muxer = "f32le"
	} else {
		//nolint:gosec // we fine, gosec
		muxer = "s" + strconv.Itoa(int(format.BitDepth)) + "le"
	}

	return muxer, "pcm_" + muxer
}

// outputArgs maps a PCM layout to ffmpeg output options. Zero rate or channels keep the source's.
func outputArgs(format *types.PCMFormat) []string {
	muxer, codec := formatSpec(format)
	args := []string{"-f", muxer, "-acodec", codec}

	if format.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(format.SampleRate))
	}

	if format.Channels > 0 {
		args = append(args, "-ac", strconv.FormatUint(uint64(format.Channels), 10))
	}

	return args
}
