package api

import (
	"fmt"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/zeebo/xxh3"

	"github.com/roach88/culturekernel/internal/render"
)

// gzipETagSuffix marks the entity tag of a gzip-encoded body.
const gzipETagSuffix = "-gzip"

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	mode := render.Negotiate(render.HintsFromRequest(r))

	out, err := s.source.Render(mode)
	if err != nil {
		s.logger.Error("render catalog",
			"request_id", RequestID(r.Context()),
			"mode", mode.String(),
			"error", err,
		)
		s.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	// Accept-Encoding is added to Vary by the gzip wrapper.
	etag := entityTag(out.Body)
	h := w.Header()
	h.Add("Vary", "Accept")
	h.Add("Vary", "User-Agent")
	h.Set("ETag", etag)
	h.Set("Cache-Control", "no-cache")

	// The gzip wrapper suffixes the tag of compressed bodies. A 304 carries no
	// body, so it echoes whichever variant the client holds.
	inm := r.Header.Get("If-None-Match")
	if gz := compressedTag(etag); etagMatches(inm, gz) {
		h.Set("ETag", gz)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if etagMatches(inm, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Type", out.ContentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(out.Body); err != nil {
		s.logger.Debug("write response", "request_id", RequestID(r.Context()), "error", err)
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Protocols int    `json:"protocols"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Protocols: s.source.Len(),
	})
}

// entityTag is a strong validator derived from the rendered body.
func entityTag(body []byte) string {
	return fmt.Sprintf(`"%016x"`, xxh3.Hash(body))
}

// compressedTag is the tag the gzip wrapper sends for a compressed body.
func compressedTag(etag string) string {
	return strings.TrimSuffix(etag, `"`) + gzipETagSuffix + `"`
}

// etagMatches applies the weak comparison used for If-None-Match.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

type errorBody struct {
	RequestID string      `json:"request_id"`
	Error     errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error envelope. Messages are fixed strings so no
// internal detail reaches the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.writeJSON(w, status, errorBody{
		RequestID: RequestID(r.Context()),
		Error:     errorDetail{Code: code, Message: message},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", render.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("encode response", "error", err)
	}
}
