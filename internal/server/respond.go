package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/skill"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error         string            `json:"error"`
	Kind          string            `json:"kind"`
	Details       map[string]string `json:"details,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", slog.String("error", err.Error()))
	}
}

// writeError maps an error to its HTTP status. Skill input schema
// violations surface as 422; internal errors carry the request id as a
// correlation id and hide their message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := seekerrors.HTTPStatus(err)

	body := errorBody{
		Error: err.Error(),
		Kind:  string(seekerrors.KindOf(err)),
	}

	var execErr *skill.ExecutionError
	if errors.As(err, &execErr) && execErr.SchemaViolation {
		status = http.StatusUnprocessableEntity
		body.Kind = string(seekerrors.KindInvalidInput)
	}
	var se *seekerrors.Error
	if errors.As(err, &se) {
		body.Details = se.Details
	}

	if status == http.StatusInternalServerError {
		reqID := middleware.GetReqID(r.Context())
		s.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", reqID),
			slog.String("error", err.Error()))
		body.Error = "internal error"
		body.CorrelationID = reqID
	}

	s.writeJSON(w, status, body)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return seekerrors.InvalidInput("invalid request body: %v", err)
	}
	return nil
}
