// Package telephony is the HTTP client for the call-placement provider.
package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mliyanage/kickass-morning-sub000/internal/dispatch"
	"github.com/mliyanage/kickass-morning-sub000/internal/domain"
)

// Client implements dispatch.CallPlacer against the provider's REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

// NewClient builds a provider client. The per-call deadline comes from the
// caller's context; the embedded client timeout is only a safety net.
func NewClient(baseURL, token string, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

type placeBody struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	VoiceID  string `json:"voice_id"`
	AudioRef string `json:"audio_ref,omitempty"`
}

type placeResponse struct {
	Status       string `json:"status"`
	CallID       string `json:"call_id"`
	DurationSec  int    `json:"duration_sec"`
	RecordingURL string `json:"recording_url"`
	AudioRef     string `json:"audio_ref"`
}

// Place posts one call-placement request. Transport errors, non-2xx
// responses and unknown statuses are returned as errors; the coordinator
// maps them to the failed outcome.
func (c *Client) Place(ctx context.Context, req dispatch.PlaceRequest) (dispatch.PlaceResult, error) {
	body, err := json.Marshal(placeBody{
		To:       req.To,
		Message:  req.Message,
		VoiceID:  req.VoiceID,
		AudioRef: req.AudioRef,
	})
	if err != nil {
		return dispatch.PlaceResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/calls", bytes.NewReader(body))
	if err != nil {
		return dispatch.PlaceResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return dispatch.PlaceResult{}, fmt.Errorf("telephony: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return dispatch.PlaceResult{}, fmt.Errorf("telephony: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dispatch.PlaceResult{}, fmt.Errorf("telephony: provider returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var pr placeResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return dispatch.PlaceResult{}, fmt.Errorf("telephony: decode response: %w", err)
	}
	status, err := domain.ParseCallStatus(pr.Status)
	if err != nil {
		return dispatch.PlaceResult{}, fmt.Errorf("telephony: %w", err)
	}
	return dispatch.PlaceResult{
		Status:       status,
		ExternalID:   pr.CallID,
		DurationSec:  pr.DurationSec,
		RecordingURL: pr.RecordingURL,
		AudioRef:     pr.AudioRef,
	}, nil
}
