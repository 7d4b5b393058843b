package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/rpn/internal/engine"
)

// DefaultTimeout bounds each remote call. A timeout only abandons waiting;
// it does not roll back a mutation the server already completed.
const DefaultTimeout = 10 * time.Second

// Remote is a Backend talking HTTP+JSON to `rpn serve`.
//
// Calculation errors are rebuilt from the response's kind into
// *engine.Error; everything else becomes a *TransportError.
type Remote struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// RemoteOption configures a Remote backend.
type RemoteOption func(*Remote)

// WithTimeout sets the per-call timeout (default DefaultTimeout).
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithHTTPClient sets the HTTP client (default http.DefaultClient).
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		if c != nil {
			r.client = c
		}
	}
}

// NewRemote creates a backend for the server at baseURL
// (e.g. "http://localhost:8000"). A trailing slash is ignored.
func NewRemote(baseURL string, opts ...RemoteOption) (*Remote, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid remote URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid remote URL %q: missing host", baseURL)
	}

	r := &Remote{
		baseURL: strings.TrimRight(u.String(), "/"),
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// State implements Backend.
func (r *Remote) State(ctx context.Context) (engine.Snapshot, error) {
	var snap engine.Snapshot
	err := r.do(ctx, "state", http.MethodGet, StackPath, nil, &snap)
	return snap, err
}

// Push implements Backend.
//
// Non-finite values cannot be encoded as JSON numbers, so they are rejected
// locally with the same InvalidOperand the server would return.
func (r *Remote) Push(ctx context.Context, value float64) (engine.Snapshot, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return engine.Snapshot{}, engine.NewInvalidOperandError(value)
	}
	var snap engine.Snapshot
	err := r.do(ctx, "push", http.MethodPost, StackPath, PushRequest{Value: &value}, &snap)
	return snap, err
}

// Apply implements Backend. Names are resolved locally so that the request
// path always carries a canonical operation name.
func (r *Remote) Apply(ctx context.Context, name string) (engine.Snapshot, error) {
	canonical, ok := engine.Normalize(name)
	if !ok {
		return engine.Snapshot{}, engine.NewUnknownOperationError(name)
	}

	var snap engine.Snapshot
	err := r.do(ctx, "apply", http.MethodPost, OpPath+"/"+url.PathEscape(canonical), nil, &snap)
	return snap, err
}

// Clear implements Backend.
func (r *Remote) Clear(ctx context.Context) (Ack, error) {
	var ack Ack
	err := r.do(ctx, "clear", http.MethodDelete, StackPath, nil, &ack)
	return ack, err
}

// Close implements Backend. Idle connections are released.
func (r *Remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func (r *Remote) do(ctx context.Context, op, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return &TransportError{Op: op, Timeout: isTimeout(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Timeout: isTimeout(ctx, err), Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 300 {
		return decodeError(op, resp, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if snap, ok := out.(*engine.Snapshot); ok && snap.Stack == nil {
		snap.Stack = []float64{}
	}
	return nil
}

// decodeError maps an error response onto the session error classes.
func decodeError(op string, resp *http.Response, data []byte) error {
	var body ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil || body.Detail == "" {
		body.Detail = strings.TrimSpace(string(data))
		if body.Detail == "" {
			body.Detail = resp.Status
		}
	}

	if kind, ok := engine.ParseKind(body.Kind); ok {
		return &engine.Error{Kind: kind, Op: op, Message: body.Detail}
	}
	return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(body.Detail)}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
