// Package web serves the dashboard as HTML pages and as JSON.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mpapenbr/racedash/log"
	"github.com/mpapenbr/racedash/pkg/chart/echarts"
	"github.com/mpapenbr/racedash/pkg/dashboard"
)

// CacheClearer drops all loaded sessions.
type CacheClearer interface {
	Clear(ctx context.Context)
}

type Option func(*Handler)

func WithCache(c CacheClearer) Option {
	return func(h *Handler) { h.cache = c }
}

func WithRenderer(r *echarts.Renderer) Option {
	return func(h *Handler) { h.charts = r }
}

func WithLogger(l *log.Logger) Option {
	return func(h *Handler) { h.log = l }
}

type Handler struct {
	views   ViewSource
	cache   CacheClearer
	charts  *echarts.Renderer
	log     *log.Logger
	pages   *PageRenderer
	handler http.Handler
}

func NewHandler(views ViewSource, opts ...Option) *Handler {
	h := &Handler{views: views, log: log.Default().Named("web")}
	for _, opt := range opts {
		opt(h)
	}
	h.pages = NewPageRenderer(views, h.charts, ServerHref)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, ServerHref(dashboard.Overview), http.StatusFound)
	})
	mux.HandleFunc("GET /sections/{section}", h.page)
	mux.HandleFunc("GET /api/sections", h.listSections)
	mux.HandleFunc("GET /api/sections/{section}", h.section)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// invalidation changes server state, it is left out of CORS and
	// cross-origin browser requests are rejected
	admin := http.NewServeMux()
	admin.HandleFunc("POST /api/cache/invalidate", h.invalidate)
	root := http.NewServeMux()
	root.Handle("/api/cache/invalidate", http.NewCrossOriginProtection().Handler(admin))
	root.Handle("/", newCORS().Handler(mux))

	h.handler = otelhttp.NewHandler(root, "racedash",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.Pattern
		}))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) parseSection(w http.ResponseWriter, r *http.Request) (dashboard.Section, bool) {
	s, err := dashboard.ParseSection(r.PathValue("section"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return "", false
	}
	return s, true
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	section, ok := h.parseSection(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if _, err := h.pages.Render(r.Context(), &buf, section); err != nil {
		h.fail(w, "could not render page", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

type sectionInfo struct {
	Section dashboard.Section `json:"section"`
	Title   string            `json:"title"`
	Href    string            `json:"href"`
}

func (h *Handler) listSections(w http.ResponseWriter, _ *http.Request) {
	ret := []sectionInfo{}
	for _, s := range dashboard.Sections() {
		ret = append(ret, sectionInfo{Section: s, Title: s.Title(), Href: "/api/sections/" + string(s)})
	}
	h.writeJSON(w, ret)
}

func (h *Handler) section(w http.ResponseWriter, r *http.Request) {
	section, ok := h.parseSection(w, r)
	if !ok {
		return
	}
	view, err := h.views.Dispatch(r.Context(), section)
	if err != nil {
		h.fail(w, "could not dispatch section", err)
		return
	}
	h.writeJSON(w, view)
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		http.Error(w, "no cache configured", http.StatusNotImplemented)
		return
	}
	h.cache.Clear(r.Context())
	h.log.Info("session cache cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.fail(w, "could not encode response", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, dashboard.ErrUnknownSection) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.log.Error(msg, log.ErrorField(err))
	http.Error(w, msg, http.StatusInternalServerError)
}

func newCORS() *cors.Cors {
	// the dashboard is read only, any origin may fetch it
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		MaxAge:         int(2 * time.Hour / time.Second),
	})
}
