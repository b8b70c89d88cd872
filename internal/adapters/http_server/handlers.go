package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"review_ingest/internal/app"
	"review_ingest/internal/domain"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Handlers serves the persisted review table read-only.
type Handlers struct {
	Q   *app.QueryService
	log zerolog.Logger
}

// problem is an RFC 7807 body.
type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	h.log = s.log
	s.mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/summary", h.summary)
		r.Get("/summary/report", h.summaryReport)
		r.Get("/products/{asin}/reviews", h.reviews)
	})
}

func (h *Handlers) problem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	p := problem{Type: "about:blank", Title: title, Status: status, Detail: detail}
	if err := json.NewEncoder(w).Encode(p); err != nil {
		h.log.Error().Err(err).Msg("write problem")
	}
}

// etagMatches reports whether If-None-Match lists tag (or is "*").
func etagMatches(header, tag string) bool {
	for _, cand := range strings.Split(header, ",") {
		if c := strings.TrimSpace(cand); c == "*" || c == tag {
			return true
		}
	}
	return false
}

// send writes body with a weak ETag, or 304 when the client already has it.
func (h *Handlers) send(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	sum := sha1.Sum(body)
	tag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	w.Header().Set("ETag", tag)
	w.Header().Set("Cache-Control", "no-cache")
	if inm := r.Header.Get("If-None-Match"); inm != "" && etagMatches(inm, tag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write(body); err != nil {
		h.log.Error().Err(err).Msg("write body")
	}
}

func (h *Handlers) sendJSON(w http.ResponseWriter, r *http.Request, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.log.Error().Err(err).Msg("encode response")
		h.problem(w, http.StatusInternalServerError, "Internal Error", "encoding failed")
		return
	}
	h.send(w, r, "application/json", body)
}

func (h *Handlers) loadSummary(w http.ResponseWriter, r *http.Request) (domain.Summary, bool) {
	s, err := h.Q.Summary(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("summary query failed")
		h.problem(w, http.StatusInternalServerError, "Internal Error", "summary unavailable")
		return domain.Summary{}, false
	}
	if s.HardcoverASINs == nil {
		s.HardcoverASINs = []string{}
	}
	return s, true
}

func (h *Handlers) summary(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.loadSummary(w, r); ok {
		h.sendJSON(w, r, s)
	}
}

// summaryReport returns the same text the email sink sends.
func (h *Handlers) summaryReport(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.loadSummary(w, r); ok {
		h.send(w, r, "text/plain; charset=utf-8", []byte(app.FormatReport(s)))
	}
}

func (h *Handlers) reviews(w http.ResponseWriter, r *http.Request) {
	asin := strings.TrimSpace(chi.URLParam(r, "asin"))
	if asin == "" {
		h.problem(w, http.StatusBadRequest, "Invalid ASIN", "asin is required")
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.problem(w, http.StatusBadRequest, "Invalid limit", err.Error())
		return
	}

	page, err := h.Q.ListByASIN(r.Context(), asin, domain.PageQuery{Limit: limit})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.problem(w, http.StatusNotFound, "Not Found", "no reviews for product")
	case err != nil:
		h.log.Error().Err(err).Str("asin", asin).Msg("reviews query failed")
		h.problem(w, http.StatusInternalServerError, "Internal Error", "reviews unavailable")
	default:
		h.sendJSON(w, r, page)
	}
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxLimit {
		return 0, errors.New("limit must be an integer between 1 and " + strconv.Itoa(maxLimit))
	}
	return n, nil
}
