package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/munkhbileg/openproject/internal/logging"
	"github.com/munkhbileg/openproject/internal/publish"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 4 << 10

// StatusError is returned when the remote end answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote order update: status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote order update: status %d: %s", e.StatusCode, e.Body)
}

// Payload is the request body sent on every order update.
type Payload struct {
	Version             uint64   `json:"version"`
	OrderedWorkPackages []string `json:"orderedWorkPackages"`
}

// HTTPOptions configures an HTTPSink.
type HTTPOptions struct {
	Client    *http.Client
	Immediate bool
	Logger    *logging.Logger
}

// HTTPSink replaces the remote order with a PATCH request per update.
type HTTPSink struct {
	client    *http.Client
	endpoint  string
	immediate bool
	logger    *logging.Logger
}

// NewHTTPSink creates a sink sending updates to endpoint.
func NewHTTPSink(endpoint string, opts HTTPOptions) (*HTTPSink, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("remote: empty endpoint")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &HTTPSink{
		client:    client,
		endpoint:  endpoint,
		immediate: opts.Immediate,
		logger:    logger.WithComponent("remote"),
	}, nil
}

// UpdateImmediately implements publish.OrderSink.
func (s *HTTPSink) UpdateImmediately() bool {
	return s.immediate
}

// UpdateOrder implements publish.OrderSink.
func (s *HTTPSink) UpdateOrder(ctx context.Context, u publish.OrderUpdate) error {
	ids := u.OrderedIDs
	if ids == nil {
		ids = []string{}
	}
	body, err := json.Marshal(Payload{Version: u.Version, OrderedWorkPackages: ids})
	if err != nil {
		return fmt.Errorf("encode order update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build order update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send order update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	s.logger.Debug("remote order replaced", "version", u.Version, "rows", len(ids), "status", resp.StatusCode)
	return nil
}
