// Package audio measures WAV loudness for the silence gate. A near-silent
// file is short-circuited to an empty transcript instead of being fed to the
// inference engine.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

type Metrics struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// SilentBelow reports whether the measured audio sits under the RMS threshold
// with a 6 dB allowance on isolated peaks.
func (m Metrics) SilentBelow(thresholdDBFS float64) bool {
	if m.Samples == 0 {
		return true
	}
	return m.RMSdBFS <= thresholdDBFS && m.PeakdBFS <= thresholdDBFS+6
}

// Analyze reads a PCM or IEEE-float WAV file and returns its RMS and peak
// levels in dBFS.
func Analyze(path string) (Metrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metrics{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	header := make([]byte, 12)
	if _, err := io.ReadFull(f, header); err != nil {
		return Metrics{}, fmt.Errorf("%w: short header", ErrInvalidWAV)
	}
	if string(header[:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return Metrics{}, ErrInvalidWAV
	}

	format, data, err := scanChunks(f)
	if err != nil {
		return Metrics{}, err
	}

	decode, bytesPerSample, err := sampleDecoder(format.audioFormat, format.bitsPerSample)
	if err != nil {
		return Metrics{}, err
	}

	var peak, sumSquares float64
	var samples int64
	for i := 0; i+bytesPerSample <= len(data); i += bytesPerSample {
		v := decode(data[i : i+bytesPerSample])
		if abs := math.Abs(v); abs > peak {
			peak = abs
		}
		sumSquares += v * v
		samples++
	}

	if samples == 0 {
		return Metrics{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}, nil
	}

	return Metrics{
		RMSdBFS:  toDBFS(math.Sqrt(sumSquares / float64(samples))),
		PeakdBFS: toDBFS(peak),
		Samples:  samples,
	}, nil
}

type wavFormat struct {
	audioFormat   uint16
	bitsPerSample uint16
}

func scanChunks(f *os.File) (wavFormat, []byte, error) {
	var (
		format  wavFormat
		hasFmt  bool
		dataOff int64 = -1
		dataLen uint32
	)

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(f, chunkHeader); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return wavFormat{}, nil, fmt.Errorf("read wav chunk header: %w", err)
		}

		chunkID := string(chunkHeader[:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		pos, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return wavFormat{}, nil, fmt.Errorf("seek wav: %w", err)
		}

		if chunkID == "fmt " {
			if chunkSize < 16 {
				return wavFormat{}, nil, ErrInvalidWAV
			}
			buf := make([]byte, 16)
			if _, err := io.ReadFull(f, buf); err != nil {
				return wavFormat{}, nil, fmt.Errorf("read wav fmt chunk: %w", err)
			}
			format.audioFormat = binary.LittleEndian.Uint16(buf[0:2])
			format.bitsPerSample = binary.LittleEndian.Uint16(buf[14:16])
			hasFmt = true
		} else if chunkID == "data" {
			dataOff = pos
			dataLen = chunkSize
		}

		// Chunks are word-aligned.
		skip := int64(chunkSize)
		if chunkSize%2 != 0 {
			skip++
		}
		if _, err := f.Seek(pos+skip, io.SeekStart); err != nil {
			return wavFormat{}, nil, fmt.Errorf("seek past wav chunk %s: %w", chunkID, err)
		}
	}

	if !hasFmt || dataOff < 0 {
		return wavFormat{}, nil, ErrInvalidWAV
	}

	if _, err := f.Seek(dataOff, io.SeekStart); err != nil {
		return wavFormat{}, nil, fmt.Errorf("seek wav data: %w", err)
	}
	data := make([]byte, dataLen)
	if _, err := io.ReadFull(f, data); err != nil {
		return wavFormat{}, nil, fmt.Errorf("read wav data: %w", err)
	}

	return format, data, nil
}

func sampleDecoder(audioFormat, bitsPerSample uint16) (func([]byte) float64, int, error) {
	const (
		formatPCM   = 1
		formatFloat = 3
	)

	switch {
	case audioFormat == formatPCM && bitsPerSample == 8:
		return func(b []byte) float64 { return (float64(b[0]) - 128.0) / 128.0 }, 1, nil
	case audioFormat == formatPCM && bitsPerSample == 16:
		return func(b []byte) float64 {
			return float64(int16(binary.LittleEndian.Uint16(b))) / 32768.0
		}, 2, nil
	case audioFormat == formatPCM && bitsPerSample == 24:
		return func(b []byte) float64 {
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if v&0x800000 != 0 {
				v |= ^0xFFFFFF
			}
			return float64(v) / 8388608.0
		}, 3, nil
	case audioFormat == formatPCM && bitsPerSample == 32:
		return func(b []byte) float64 {
			return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648.0
		}, 4, nil
	case audioFormat == formatFloat && bitsPerSample == 32:
		return func(b []byte) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}, 4, nil
	case audioFormat == formatFloat && bitsPerSample == 64:
		return func(b []byte) float64 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		}, 8, nil
	default:
		return nil, 0, ErrUnsupportedWAV
	}
}

func toDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
