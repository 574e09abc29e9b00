package ffmpeg

import (
	"slices"
	"testing"

	"github.com/farcloser/phonometer/internal/types"
)

func TestOutputArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format   types.PCMFormat
		expected []string
	}{
		{
			types.PCMFormat{BitDepth: types.Depth32, Float: true, Channels: 2},
			[]string{"-f", "f32le", "-acodec", "pcm_f32le", "-ac", "2"},
		},
		{
			types.PCMFormat{BitDepth: types.Depth16},
			[]string{"-f", "s16le", "-acodec", "pcm_s16le"},
		},
		{
			types.PCMFormat{BitDepth: types.Depth24, SampleRate: 48000},
			[]string{"-f", "s24le", "-acodec", "pcm_s24le", "-ar", "48000"},
		},
	}

	for _, tt := range tests {
		if got := outputArgs(&tt.format); !slices.Equal(got, tt.expected) {
			t.Errorf("outputArgs(%+v) = %v, expected %v", tt.format, got, tt.expected)
		}
	}
}
