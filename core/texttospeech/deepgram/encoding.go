package deepgram

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/koscakluka/prep-core/core/audio"
)

func encodingQuery(encoding audio.EncodingInfo, query url.Values) error {
	switch encoding.Format {
	case audio.EncodingLinear16:
		switch encoding.SampleRate {
		case 8000, 16000, 24000, 32000, 48000:
		default:
			return fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
		}
	case audio.EncodingMulaw, audio.EncodingALaw:
		if encoding.SampleRate != 8000 && encoding.SampleRate != 16000 {
			return fmt.Errorf("unsupported sample rate %d for %s encoding", encoding.SampleRate, encoding.Format.Name())
		}
	default:
		return fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}

	query.Set("encoding", encoding.Format.Name())
	query.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	query.Set("container", "none")
	return nil
}
