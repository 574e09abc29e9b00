package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/phonometer/internal/types"
)

const (
	MaxValue16 = 32768.0      // 2^15, 16-bit signed PCM normalization divisor
	MaxValue24 = 8388608.0    // 2^23, 24-bit signed PCM normalization divisor
	MaxValue32 = 2147483648.0 // 2^31, 32-bit signed PCM normalization divisor
)

var errUnsupportedFormat = errors.New("unsupported pcm format")

// Decode reads raw little-endian PCM into normalized interleaved float32 samples.
// A trailing partial frame is dropped.
func Decode(r io.Reader, format types.PCMFormat) ([]float32, error) {
	if format.Channels == 0 {
		return nil, fmt.Errorf("%w: no channels", errUnsupportedFormat)
	}

	bytesPerSample := int(format.BitDepth / 8) //nolint:gosec // small constants
	if format.Float && format.BitDepth != types.Depth32 {
		return nil, fmt.Errorf("%w: float samples must be 32-bit", errUnsupportedFormat)
	}

	switch format.BitDepth {
	case types.Depth16, types.Depth24, types.Depth32:
	default:
		return nil, fmt.Errorf("%w: %d-bit", errUnsupportedFormat, format.BitDepth)
	}

	frameSize := bytesPerSample * int(format.Channels) //nolint:gosec // validated above
	buf := make([]byte, frameSize*4096)

	var out []float32

	for {
		n, err := io.ReadFull(r, buf)

		data := buf[:(n/frameSize)*frameSize]
		for i := 0; i < len(data); i += bytesPerSample {
			out = append(out, sample(data[i:], format))
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
		}
	}

	return out, nil
}

func sample(data []byte, format types.PCMFormat) float32 {
	switch format.BitDepth {
	case types.Depth16:
		return float32(float64(int16(binary.LittleEndian.Uint16(data))) / MaxValue16) //nolint:gosec // reinterpretation
	case types.Depth24:
		raw := int32(data[0]) | int32(data[1])<<8 | int32(data[2])<<16
		if raw&0x800000 != 0 {
			raw |= ^0xFFFFFF
		}

		return float32(float64(raw) / MaxValue24)
	default:
		bits := binary.LittleEndian.Uint32(data)
		if format.Float {
			return math.Float32frombits(bits)
		}

		return float32(float64(int32(bits)) / MaxValue32) //nolint:gosec // reinterpretation
	}
}
