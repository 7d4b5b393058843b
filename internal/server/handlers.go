package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/roach88/rpn/internal/engine"
	"github.com/roach88/rpn/internal/session"
)

const maxBodyBytes = 1 << 16

// Health is the body of GET /.
type Health struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// OperationInfo describes one catalog entry for GET /api/v1/operations.
type OperationInfo struct {
	Name    string   `json:"name"`
	Pop     int      `json:"pop"`
	Push    int      `json:"push"`
	Aliases []string `json:"aliases,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Health{Name: s.name, Version: s.version, Status: "running"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.backend.State(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	value, err := decodePush(r.Body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, session.ErrorResponse{
			Detail: err.Error(),
			Kind:   session.KindValidation,
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.backend.Push(r.Context(), value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.Publish(snap)
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.backend.Apply(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.Publish(snap)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ack, err := s.backend.Clear(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.Publish(engine.Snapshot{Stack: []float64{}})
	writeJSON(w, http.StatusOK, ack)
}

func (s *Server) handleOperations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Operations())
}

// Operations describes the catalog in declaration order.
func Operations() []OperationInfo {
	catalog := engine.Catalog()
	infos := make([]OperationInfo, 0, len(catalog))
	for _, op := range catalog {
		infos = append(infos, OperationInfo{
			Name:    op.Name,
			Pop:     op.Pop,
			Push:    op.Push,
			Aliases: engine.Aliases(op.Name),
		})
	}
	return infos
}

// decodePush reads {"value": n}. Numbers outside the float64 range are
// passed through as ±Inf so the backend rejects them as InvalidOperand.
func decodePush(body io.Reader) (float64, error) {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.UseNumber()

	var req struct {
		Value any `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		return 0, fmt.Errorf("invalid JSON body: %w", err)
	}
	if req.Value == nil {
		return 0, errors.New(`field "value" is required`)
	}
	num, ok := req.Value.(json.Number)
	if !ok {
		return 0, errors.New(`field "value" must be a number`)
	}

	v, err := strconv.ParseFloat(num.String(), 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v, nil
		}
		return 0, fmt.Errorf(`field "value" is not a valid number: %w`, err)
	}
	return v, nil
}

// writeError maps err to a status and an ErrorResponse body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var calcErr *engine.Error
	if errors.As(err, &calcErr) {
		status := http.StatusBadRequest
		if calcErr.Kind == engine.KindUnknownOperation {
			status = http.StatusNotFound
		}
		writeJSON(w, status, session.ErrorResponse{
			Detail: calcErr.Message,
			Kind:   string(calcErr.Kind),
		})
		return
	}

	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, session.ErrorResponse{
		Detail: err.Error(),
		Kind:   session.KindInternal,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
