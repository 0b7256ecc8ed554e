// Package webhook provides the HTTP POST notification sink.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/soundscribe/soundscribe/internal/core"
	"github.com/soundscribe/soundscribe/internal/domain/model"
	apperrors "github.com/soundscribe/soundscribe/internal/errors"
)

// Sink delivers terminal-job payloads by POSTing JSON to caller-supplied URLs.
type Sink struct {
	http   *http.Client
	logger *slog.Logger
}

var _ core.NotificationSink = (*Sink)(nil)

// SinkOptions groups dependencies for Sink.
type SinkOptions struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewSink constructs a webhook sink.
func NewSink(opts SinkOptions) *Sink {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Sink{
		http:   hc,
		logger: logger.With("component", "webhook_sink"),
	}
}

// Kind identifies which notification targets this sink serves.
func (s *Sink) Kind() model.TargetKind {
	return model.TargetWebhook
}

// Deliver POSTs the payload to the endpoint URL. A 2xx response is success,
// network failures and 5xx responses are transient (retryable), and any other
// 4xx is permanent: the caller logs and drops it.
func (s *Sink) Deliver(ctx context.Context, endpoint string, payload model.TerminalPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTransient, "post webhook")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode >= 500:
		return apperrors.Transient(fmt.Sprintf("webhook returned status %d", resp.StatusCode))
	default:
		return apperrors.Internal(fmt.Sprintf("webhook returned status %d", resp.StatusCode))
	}
}
