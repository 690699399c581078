package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	_struct "speech-dojo/models/struct"
)

const defaultEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// OpenAIClient calls the audio transcriptions endpoint with
// response_format=verbose_json so segment timings come back.
type OpenAIClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

func NewOpenAIClient(apiKey, model string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
}

func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, durationHint *int) ([]_struct.TranscriptSegment, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.webm")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, err
	}
	if err := mw.WriteField("model", c.model); err != nil {
		return nil, err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("transcription provider http %d: %s", resp.StatusCode, string(b))
	}

	var parsed whisperVerboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	if len(parsed.Segments) > 0 {
		segments := make([]_struct.TranscriptSegment, 0, len(parsed.Segments))
		for _, seg := range parsed.Segments {
			segments = append(segments, _struct.TranscriptSegment{
				Speaker: "user",
				Text:    seg.Text,
				StartMs: int64(seg.Start * 1000),
				EndMs:   int64(seg.End * 1000),
			})
		}
		return segments, nil
	}

	// No timings returned: fall back to a single segment spanning the
	// best-known duration.
	endMs := int64(0)
	if durationHint != nil && *durationHint > 0 {
		endMs = int64(*durationHint) * 1000
	}
	return []_struct.TranscriptSegment{{
		Speaker: "user",
		Text:    parsed.Text,
		StartMs: 0,
		EndMs:   endMs,
	}}, nil
}
