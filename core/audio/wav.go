package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	wavHeaderSize = 44

	wavFormatPCM   = 1
	wavFormatALaw  = 6
	wavFormatMulaw = 7
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// EncodeWAV wraps raw samples in a RIFF/WAVE container so they can be
// uploaded as a file.
func EncodeWAV(samples []byte, info EncodingInfo) ([]byte, error) {
	var formatTag uint16
	switch info.Format {
	case EncodingLinear16:
		formatTag = wavFormatPCM
	case EncodingALaw:
		formatTag = wavFormatALaw
	case EncodingMulaw:
		formatTag = wavFormatMulaw
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, info.Format)
	}
	if info.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", info.SampleRate)
	}

	channels := uint16(info.channels())
	bitsPerSample := uint16(info.Format.ByteSize() * 8)
	blockAlign := channels * bitsPerSample / 8
	byteRate := uint32(info.SampleRate) * uint32(blockAlign)

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(samples)))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+len(samples)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, formatTag)
	_ = binary.Write(buf, binary.LittleEndian, channels)
	_ = binary.Write(buf, binary.LittleEndian, uint32(info.SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, byteRate)
	_ = binary.Write(buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(buf, binary.LittleEndian, bitsPerSample)

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(samples)))
	buf.Write(samples)

	return buf.Bytes(), nil
}
