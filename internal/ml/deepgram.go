package ml

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	backendDeepgram    = "deepgram"
	deepgramAuthScheme = "Token"
	deepgramModel      = "nova-2"
)

// DeepgramTranscriber sends Deepgram a URL to fetch the audio from, so the
// worker never downloads media itself.
type DeepgramTranscriber struct {
	api apiClient
}

func NewDeepgramTranscriber(endpoint, apiKey string, timeout time.Duration) *DeepgramTranscriber {
	if endpoint != "" {
		if u, err := url.Parse(endpoint); err == nil {
			q := u.Query()
			if q.Get("model") == "" {
				q.Set("model", deepgramModel)
			}
			q.Set("smart_format", "true")
			u.RawQuery = q.Encode()
			endpoint = u.String()
		}
	}
	return &DeepgramTranscriber{api: newAPIClient(backendDeepgram, endpoint, deepgramAuthScheme, apiKey, timeout)}
}

type deepgramRequest struct {
	URL string `json:"url"`
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *DeepgramTranscriber) Transcribe(ctx context.Context, audio AudioInput) (string, error) {
	if audio.URL == "" {
		return "", fmt.Errorf(errNoTextToProcess, ErrBadInput)
	}

	var resp deepgramResponse
	if err := d.api.postJSON(ctx, deepgramRequest{URL: audio.URL}, &resp); err != nil {
		return "", err
	}

	if len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
		return "", fmt.Errorf(errBackendEmptyFmt, ErrBackendUnavailable, backendDeepgram)
	}
	return strings.TrimSpace(resp.Results.Channels[0].Alternatives[0].Transcript), nil
}
