package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	svcErr "github.com/oggyb/catmatch/internal/errors"
	"github.com/oggyb/catmatch/internal/logger"
)

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError answers with {success:false, error} and the status of the
// error's kind. Upstream failures are logged with the request's logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	mapped := svcErr.Map(err)
	kind := svcErr.KindOf(mapped)

	if kind == svcErr.KindUpstream {
		logger.FromContext(r.Context(), slog.Default()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
	}

	WriteJSON(w, kind.HTTPStatus(), map[string]any{
		"success": false,
		"error":   svcErr.Message(mapped),
	})
}

// DecodeJSON reads a JSON body into v. An empty or malformed body is an
// InvalidInput error.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return svcErr.InvalidArgument("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return svcErr.InvalidArgument("request body is required")
		}
		return svcErr.InvalidArgument("malformed JSON body")
	}
	return nil
}
