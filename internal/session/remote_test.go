package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rpn/internal/engine"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestRemote(t *testing.T, h http.HandlerFunc, opts ...RemoteOption) *Remote {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	r, err := NewRemote(srv.URL+"/", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestNewRemote_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://host", "http://"} {
		_, err := NewRemote(raw)
		assert.Error(t, err, "url %q", raw)
	}
}

func TestRemote_RequestShape(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody []byte
	r := newTestRemote(t, func(w http.ResponseWriter, req *http.Request) {
		gotMethod, gotPath = req.Method, req.URL.Path
		gotBody, _ = io.ReadAll(req.Body)
		switch req.Method {
		case http.MethodDelete:
			writeJSON(w, http.StatusOK, Ack{Message: ClearedMessage})
		case http.MethodPost:
			writeJSON(w, http.StatusCreated, engine.Snapshot{Stack: []float64{2.5}, Size: 1})
		default:
			writeJSON(w, http.StatusOK, engine.Snapshot{Stack: []float64{2.5}, Size: 1})
		}
	})
	ctx := context.Background()

	snap, err := r.Push(ctx, 2.5)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, StackPath, gotPath)
	assert.JSONEq(t, `{"value":2.5}`, string(gotBody))
	assert.Equal(t, []float64{2.5}, snap.Stack)

	_, err = r.Apply(ctx, "sqrt")
	require.NoError(t, err)
	assert.Equal(t, OpPath+"/sqrt", gotPath)

	_, err = r.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, gotMethod)

	ack, err := r.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, ClearedMessage, ack.Message)
}

func TestRemote_EmptyStackDecodesNonNil(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"stack": nil, "size": 0})
	})

	snap, err := r.State(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Stack)
	assert.Empty(t, snap.Stack)
}

func TestRemote_CalculationErrorsKeepKind(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		status  int
		kind    engine.Kind
		message string
	}{
		{"underflow", "div", http.StatusBadRequest, engine.KindStackUnderflow, "nope"},
		{"division by zero", "div", http.StatusBadRequest, engine.KindDivisionByZero, "nope"},
		{"negative sqrt", "div", http.StatusBadRequest, engine.KindNegativeSqrt, "nope"},
		{"overflow", "div", http.StatusBadRequest, engine.KindComputationOverflow, "nope"},
		{"invalid operand", "div", http.StatusBadRequest, engine.KindInvalidOperand, "nope"},
		{"unknown on server", "div", http.StatusNotFound, engine.KindUnknownOperation, "nope"},
		{"empty name", "", 0, engine.KindUnknownOperation, `unknown operation ""`},
		{"dot segment", ".", 0, engine.KindUnknownOperation, `unknown operation "."`},
		{"blank name", "   ", 0, engine.KindUnknownOperation, `unknown operation "   "`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRemote(t, func(w http.ResponseWriter, _ *http.Request) {
				if tt.status == 0 {
					t.Errorf("unexpected request for %q", tt.op)
				}
				writeJSON(w, tt.status, ErrorResponse{Detail: "nope", Kind: string(tt.kind)})
			})

			_, err := r.Apply(context.Background(), tt.op)
			require.Error(t, err)
			assert.True(t, engine.IsKind(err, tt.kind))
			assert.False(t, IsTransportError(err))

			var calcErr *engine.Error
			require.True(t, errors.As(err, &calcErr))
			assert.Equal(t, tt.message, calcErr.Message)
		})
	}
}

func TestRemote_ApplySendsCanonicalName(t *testing.T) {
	for _, alias := range []string{"/", "  POWER ", "^"} {
		t.Run(alias, func(t *testing.T) {
			var path string
			r := newTestRemote(t, func(w http.ResponseWriter, req *http.Request) {
				path = req.URL.Path
				writeJSON(w, http.StatusOK, engine.Snapshot{Stack: []float64{1}, Size: 1})
			})

			_, err := r.Apply(context.Background(), alias)
			require.NoError(t, err)
			canonical, ok := engine.Normalize(alias)
			require.True(t, ok)
			assert.Equal(t, OpPath+"/"+canonical, path)
		})
	}
}

func TestRemote_ServerErrorIsTransportError(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "disk full", Kind: KindInternal})
	})

	_, err := r.Push(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.False(t, IsTimeout(err))
	_, isCalc := engine.KindOf(err)
	assert.False(t, isCalc)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Contains(t, te.Error(), "disk full")
	assert.Contains(t, te.Error(), "outcome unknown")
}

func TestRemote_UnknownErrorBodyIsTransportError(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	_, err := r.Clear(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestRemote_Timeout(t *testing.T) {
	release := make(chan struct{})
	r := newTestRemote(t, func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-release:
		case <-req.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := r.Push(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.True(t, IsTimeout(err))
	assert.Contains(t, err.Error(), "timeout")
}

func TestRemote_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r, err := NewRemote(url)
	require.NoError(t, err)

	_, err = r.State(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.False(t, IsTimeout(err))
	assert.Contains(t, err.Error(), "connection failed")
}

func TestRemote_NonFinitePushRejectedLocally(t *testing.T) {
	called := false
	r := newTestRemote(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
		writeJSON(w, http.StatusCreated, engine.Snapshot{Stack: []float64{}})
	})

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := r.Push(context.Background(), v)
		assert.True(t, engine.IsKind(err, engine.KindInvalidOperand))
	}
	assert.False(t, called)
}
