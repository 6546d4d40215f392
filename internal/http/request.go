package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

const maxRequestBody = 1 << 20

// decodeJSON reads the request body into dst. It writes a 400 response and
// returns false when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, res responder, logger *slog.Logger, dst any) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty request body")
		}
		logger.ErrorContext(r.Context(), "failed to decode request", "error", err, "error_kind", "bad_request")
		res.writeError(r.Context(), w, http.StatusBadRequest, nil)
		return false
	}
	return true
}

// pathID parses the {id} path value as a positive integer. It writes a 400
// response and returns false otherwise.
func pathID(w http.ResponseWriter, r *http.Request, res responder) (int64, bool) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		res.writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Message: localize(msgInvalidID, raw)})
		return 0, false
	}
	return id, true
}
