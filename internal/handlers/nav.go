package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/storenav/internal/content"
	"finitefield.org/storenav/internal/nav"
	"finitefield.org/storenav/internal/platform/httpx"
	"finitefield.org/storenav/internal/platform/requestctx"
	"finitefield.org/storenav/internal/view"
)

// PageSource loads page bodies by slug.
type PageSource interface {
	Page(ctx context.Context, slug string) (content.Page, error)
}

// NavHandlers serves the navigation as JSON, as an HTML fragment and inside full pages.
type NavHandlers struct {
	sections content.Source
	pages    PageSource
	navOpts  view.NavOptions
	siteName string
	lang     string
}

// NavOption customises NavHandlers.
type NavOption func(*NavHandlers)

// WithPages sets the page body source. Without one every page renders as not found.
func WithPages(p PageSource) NavOption {
	return func(h *NavHandlers) { h.pages = p }
}

// WithNavOptions sets the markup options used for the navigation list.
func WithNavOptions(opts view.NavOptions) NavOption {
	return func(h *NavHandlers) { h.navOpts = opts }
}

// WithSiteName sets the site name shown in titles and the header.
func WithSiteName(name string) NavOption {
	return func(h *NavHandlers) { h.siteName = name }
}

// NewNavHandlers constructs handlers backed by the given section source.
func NewNavHandlers(sections content.Source, opts ...NavOption) *NavHandlers {
	h := &NavHandlers{
		sections: sections,
		siteName: "Storefront",
		lang:     "en",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type navResponse struct {
	Items nav.List `json:"items"`
}

// NavJSON renders the navigation list as JSON.
//
// Query: active=<section id> or path=<request path>. Without either, htmx
// requests fall back to the HX-Current-URL path; others get no active section.
func (h *NavHandlers) NavJSON(w http.ResponseWriter, r *http.Request) {
	list, ok := h.resolve(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, navResponse{Items: list})
}

// NavFragment renders only the <nav> markup, for htmx swaps and server-side includes.
func (h *NavHandlers) NavFragment(w http.ResponseWriter, r *http.Request) {
	list, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := view.NavList(list, h.navOpts).Render(r.Context(), &buf); err != nil {
		requestctx.Logger(r.Context()).Error("render nav fragment", zap.Error(err))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Vary", "HX-Request")
	_, _ = buf.WriteTo(w)
}

// Page renders the page at the request path with its navigation and breadcrumbs.
func (h *NavHandlers) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := requestctx.Logger(ctx)
	path := r.URL.Path

	sections := h.loadSections(ctx)
	data := view.PageData{
		SiteName:    h.siteName,
		Lang:        h.lang,
		Nav:         nav.Render(sections, nav.ActiveFromPath(sections, path)),
		NavOptions:  h.navOpts,
		Breadcrumbs: nav.Breadcrumbs(sections, path),
	}

	status := http.StatusOK
	page, err := h.page(ctx, content.SlugForPath(path))
	switch {
	case err == nil:
		data.Title = page.Title
		data.Summary = page.Summary
		data.Body = page.Body
		if page.Lang != "" {
			data.Lang = page.Lang
		}
	case errors.Is(err, content.ErrNotFound):
		status = http.StatusNotFound
		data.Title = "Page not found"
		data.Body = template.HTML("<p>The page you requested could not be found.</p>")
	default:
		logger.Error("load page", zap.String("path", path), zap.Error(err))
		status = http.StatusInternalServerError
		data.Title = "Something went wrong"
		data.Body = template.HTML("<p>The page could not be loaded. Please try again later.</p>")
	}

	var buf bytes.Buffer
	if err := view.Page(data).Render(ctx, &buf); err != nil {
		logger.Error("render page", zap.Error(err))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *NavHandlers) page(ctx context.Context, slug string) (content.Page, error) {
	if h.pages == nil {
		return content.Page{}, content.ErrNotFound
	}
	return h.pages.Page(ctx, slug)
}

// resolve loads sections and renders the list for the active/path query.
// It writes a JSON error and reports false on invalid input.
func (h *NavHandlers) resolve(w http.ResponseWriter, r *http.Request) (nav.List, bool) {
	q := r.URL.Query()
	if q.Has("active") && q.Has("path") {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_query", "use either active or path, not both", http.StatusBadRequest))
		return nil, false
	}

	sections := h.loadSections(r.Context())
	var active nav.Active
	switch {
	case q.Has("active"):
		active = nav.ActiveID(q.Get("active"))
	case q.Has("path"):
		active = nav.ActiveFromPath(sections, q.Get("path"))
	default:
		if p, ok := htmxCurrentPath(r); ok {
			active = nav.ActiveFromPath(sections, p)
		}
	}
	return nav.Render(sections, active), true
}

// loadSections never fails: an unavailable source yields an empty navigation.
func (h *NavHandlers) loadSections(ctx context.Context) []nav.Section {
	if h.sections == nil {
		return nil
	}
	sections, err := h.sections.Sections(ctx)
	if err != nil {
		requestctx.Logger(ctx).Warn("sections unavailable", zap.Error(err))
		return nil
	}
	return sections
}
