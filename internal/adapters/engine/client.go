// Package engine provides the transcription engine client. The engine itself
// is an external inference server; this adapter ships audio bytes to it and
// decodes the segment list it returns.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/soundscribe/soundscribe/config"
	"github.com/soundscribe/soundscribe/internal/core"
	"github.com/soundscribe/soundscribe/internal/domain/model"
	apperrors "github.com/soundscribe/soundscribe/internal/errors"
)

const maxErrorBodyBytes = 2 * 1024

// Client implements core.TranscriptionEngine against an HTTP inference server.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	logger  *slog.Logger
}

var _ core.TranscriptionEngine = (*Client)(nil)

// ClientOptions groups dependencies for Client.
type ClientOptions struct {
	Config     config.EngineConfig
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient constructs an engine client.
func NewClient(opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hc := opts.HTTPClient
	if hc == nil {
		// Per-job deadlines come from the caller's context; no client timeout
		// here so long transcriptions are not cut off early.
		hc = &http.Client{}
	}

	return &Client{
		baseURL: opts.Config.URL,
		model:   opts.Config.Model,
		http:    hc,
		logger:  logger.With("component", "engine_client"),
	}
}

// transcribeResponse is the engine server's wire format.
type transcribeResponse struct {
	Segments []model.Segment `json:"segments"`
}

// Transcribe posts the audio bytes and returns the ordered segment list.
// Every engine failure is non-retryable.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (model.Transcript, error) {
	endpoint := fmt.Sprintf("%s/transcribe?model=%s", c.baseURL, url.QueryEscape(c.model))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
	if err != nil {
		return model.Transcript{}, apperrors.Wrap(err, apperrors.ErrCodeEngine, "build engine request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return model.Transcript{}, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeTimeout, "engine request")
		}
		return model.Transcript{}, apperrors.Wrap(err, apperrors.ErrCodeEngine, "engine request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return model.Transcript{}, apperrors.Engine(
			fmt.Sprintf("engine returned status %d: %s", resp.StatusCode, string(body)))
	}

	var decoded transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return model.Transcript{}, apperrors.Wrap(err, apperrors.ErrCodeEngine, "decode engine response")
	}

	c.logger.DebugContext(ctx, "transcription finished",
		"segments", len(decoded.Segments),
		"duration", time.Since(start),
	)

	return model.Transcript{Segments: decoded.Segments}, nil
}
