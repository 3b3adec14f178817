package sessionapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/koscakluka/prep-core/core/audio"
	"github.com/koscakluka/prep-core/core/capture"
)

var _ capture.Transcriber = (*Client)(nil)

// Transcribe uploads a capture as a WAV file to the backend's speech
// recognition endpoint.
func (c *Client) Transcribe(ctx context.Context, samples []byte, info audio.EncodingInfo) (string, error) {
	wav, err := audio.EncodeWAV(samples, info)
	if err != nil {
		return "", fmt.Errorf("failed to encode capture: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "answer.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create upload: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("interview/transcribe"), &body)
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp transcriptionDTO
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("failed to transcribe capture: %w", err)
	}
	if !resp.Success {
		return "", errors.New("failed to transcribe capture: backend reported failure")
	}
	return strings.TrimSpace(resp.Text), nil
}
