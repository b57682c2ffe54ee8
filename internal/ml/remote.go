package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
	maxErrorBodyBytes   = 512
	maxResponseBytes    = 8 << 20

	// Outbound budget per backend, shared by every task in the process.
	requestsPerSecond = 5
	requestBurst      = 5
)

// apiClient posts JSON to one remote backend and maps its failures onto
// ErrBackendUnavailable and ErrBadInput.
type apiClient struct {
	name       string
	url        string
	authScheme string
	apiKey     string
	http       *http.Client
	limiter    *rate.Limiter
}

func newAPIClient(name, url, authScheme, apiKey string, timeout time.Duration) apiClient {
	return apiClient{
		name:       name,
		url:        url,
		authScheme: authScheme,
		apiKey:     apiKey,
		http:       &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
}

func (c apiClient) configured() error {
	if c.url == "" || c.apiKey == "" {
		return fmt.Errorf(errBackendNotConfigured, ErrBackendUnavailable, c.name)
	}
	return nil
}

func (c apiClient) postJSON(ctx context.Context, payload, out any) error {
	if err := c.configured(); err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf(errBackendRequestFmt, ErrBackendUnavailable, c.name, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf(errBackendRequestFmt, ErrBadInput, c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf(errBackendRequestFmt, ErrBackendUnavailable, c.name, err)
	}
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAuthorization, c.authScheme+" "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf(errBackendRequestFmt, ErrBackendUnavailable, c.name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf(errBackendStatusFmt, ErrBackendUnavailable, c.name, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf(errBackendRejectedFmt, ErrBadInput, c.name, resp.StatusCode, bytes.TrimSpace(detail))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf(errBackendDecodeFmt, ErrBackendUnavailable, c.name, err)
	}
	return nil
}
