// Package wavfile reads PCM WAV files into clips and writes 16-bit stereo WAV files.
package wavfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/farcloser/primordium/fault"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/types"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
	encodeDepth      = 16
	encodeScale      = 32767.0
)

var (
	ErrInvalidFile       = errors.New("invalid wav file")
	ErrUnsupportedFormat = errors.New("unsupported wav format")
)

// Decode reads a whole integer PCM WAV stream.
func Decode(r io.ReadSeeker) (types.Clip, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return types.Clip{}, ErrInvalidFile
	}

	if decoder.WavAudioFormat != formatPCM && decoder.WavAudioFormat != formatExtensible {
		return types.Clip{}, fmt.Errorf("%w: audio format %d", ErrUnsupportedFormat, decoder.WavAudioFormat)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return types.Clip{}, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	samples, err := normalize(buf)
	if err != nil {
		return types.Clip{}, err
	}

	return types.Clip{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

// Read decodes a WAV file from disk.
func Read(path string) (types.Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		return types.Clip{}, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
	defer file.Close()

	return Decode(file)
}

func normalize(buf *audio.IntBuffer) ([]float32, error) {
	out := make([]float32, len(buf.Data))

	switch buf.SourceBitDepth {
	case 8:
		// 8-bit WAV is unsigned.
		for i, v := range buf.Data {
			out[i] = float32(float64(v-128) / 128)
		}
	case 16:
		scaleInto(out, buf.Data, pcm.MaxValue16)
	case 24:
		scaleInto(out, buf.Data, pcm.MaxValue24)
	case 32:
		scaleInto(out, buf.Data, pcm.MaxValue32)
	default:
		return nil, fmt.Errorf("%w: %d-bit", ErrUnsupportedFormat, buf.SourceBitDepth)
	}

	return out, nil
}

func scaleInto(dst []float32, src []int, divisor float64) {
	for i, v := range src {
		dst[i] = float32(float64(v) / divisor)
	}
}

// Encode writes a canonical 16-bit stereo WAV. Samples are clamped to [-1, 1].
func Encode(w io.WriteSeeker, left, right []float32, sampleRate int) error {
	frames := min(len(left), len(right))
	data := make([]int, 0, frames*2)

	for i := range frames {
		data = append(data, quantize(left[i]), quantize(right[i]))
	}

	encoder := wav.NewEncoder(w, sampleRate, encodeDepth, 2, formatPCM)

	err := encoder.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: encodeDepth,
	})
	if err != nil {
		return err
	}

	return encoder.Close()
}

// Write encodes to a file, replacing it.
func Write(path string, left, right []float32, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err = Encode(file, left, right, sampleRate); err != nil {
		_ = file.Close()

		return err
	}

	return file.Close()
}

func quantize(v float32) int {
	return int(max(-1, min(1, float64(v))) * encodeScale)
}
