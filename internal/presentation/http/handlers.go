package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"notebook/app/internal/data/database"
	"notebook/app/internal/domain/auth"
	"notebook/app/internal/domain/blog"
	"notebook/app/internal/presentation/http/templates"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	excerptLength        = 280
	timestampLayout      = "January 2, 2006 15:04 MST"
	errorFallbackMessage = "We couldn't process your request right now."
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Location    string `header:"Location"`
	SetCookie   string `header:"Set-Cookie"`
	Body        []byte
}

type indexInput struct {
	Query string `query:"q"`
}

type slugInput struct {
	Slug string `path:"slug"`
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerIndexRoute() {
	huma.Get(s.api, "/", s.indexHandler, htmlOperation(
		"List published entries or search them",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerDraftsRoute() {
	huma.Get(s.api, "/drafts", s.draftsHandler, htmlOperation(
		"List draft entries",
		stdhttp.StatusFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerEntryRoute() {
	huma.Get(s.api, "/entries/{slug}", s.entryHandler, htmlOperation(
		"Show an entry",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerAboutRoute() {
	huma.Get(s.api, "/about", s.aboutHandler, htmlOperation("About this site"))
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) indexHandler(ctx context.Context, input *indexInput) (*htmlResponse, error) {
	// "/" is a catch-all pattern on the mux, so unknown paths land here.
	if req := requestFromContext(ctx); req != nil && req.URL.Path != "/" {
		return s.renderErrorResponse(ctx, stdhttp.StatusNotFound, "We couldn't find that page."), nil
	}

	query := blog.NormalizeQuery(input.Query)
	if query != "" {
		return s.searchResponse(ctx, query), nil
	}

	entries, err := s.blog.ListPublic(ctx)
	if err != nil {
		s.recordError(ctx, err, "listing public entries", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't load the entries right now."), nil
	}

	data := templates.IndexPageData{
		Heading:      "Entries",
		Entries:      s.entryViews(ctx, entries),
		EmptyMessage: "Nothing has been published yet.",
	}

	return s.pageResponse(ctx, stdhttp.StatusOK, "", "", templates.IndexPage(data)), nil
}

func (s *Server) searchResponse(ctx context.Context, query string) *htmlResponse {
	results, err := s.blog.Search(ctx, query)
	if err != nil {
		s.recordError(ctx, err, "searching entries", logrus.Fields{"query": query})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't run that search right now.")
	}

	views := make([]templates.EntryView, 0, len(results))
	for _, result := range results {
		view := s.entryView(ctx, result.Entry)
		view.ScoreLabel = "relevance " + strconv.FormatFloat(result.Score, 'f', 2, 64)
		views = append(views, view)
	}

	data := templates.IndexPageData{
		Heading:      fmt.Sprintf("Search results for %q", query),
		Query:        query,
		Entries:      views,
		EmptyMessage: "No entries matched your search.",
	}

	return s.pageResponse(ctx, stdhttp.StatusOK, "Search", query, templates.IndexPage(data))
}

func (s *Server) draftsHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	if resp := s.requireAdmin(ctx, "/drafts"); resp != nil {
		return resp, nil
	}

	entries, err := s.blog.ListDrafts(ctx)
	if err != nil {
		s.recordError(ctx, err, "listing drafts", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't load the drafts right now."), nil
	}

	data := templates.IndexPageData{
		Heading:      "Drafts",
		Entries:      s.entryViews(ctx, entries),
		EmptyMessage: "There are no drafts.",
	}

	return s.pageResponse(ctx, stdhttp.StatusOK, "Drafts", "", templates.IndexPage(data)), nil
}

func (s *Server) entryHandler(ctx context.Context, input *slugInput) (*htmlResponse, error) {
	slug := strings.TrimSpace(input.Slug)

	entry, err := s.blog.GetBySlug(ctx, slug)
	if err != nil {
		status, message := classifyError(err)
		s.recordError(ctx, err, "loading entry", logrus.Fields{"slug": slug})
		return s.renderErrorResponse(ctx, status, message), nil
	}

	isAdmin := auth.IsAdmin(ctx)
	if entry.IsDraft() && !isAdmin {
		return s.renderErrorResponse(ctx, stdhttp.StatusNotFound, notFoundMessage), nil
	}

	rendered, err := s.renderer.Render(entry.Content)
	if err != nil {
		s.recordError(ctx, err, "rendering entry content", logrus.Fields{"slug": slug})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render this entry."), nil
	}

	view := s.entryView(ctx, *entry)
	view.ContentHTML = rendered

	data := templates.DetailPageData{Entry: view, IsAdmin: isAdmin}
	return s.pageResponse(ctx, stdhttp.StatusOK, entry.Title, "", templates.DetailPage(data)), nil
}

func (s *Server) aboutHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	data := templates.AboutPageData{
		SiteTitle: s.siteTitle,
		Paragraphs: []string{
			"A small notebook of published entries, written in Markdown.",
			"Use the search box to find entries by any word in their title or body. Results are ranked by how often your words appear.",
		},
	}

	return s.pageResponse(ctx, stdhttp.StatusOK, "About", "", templates.AboutPage(data)), nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{Status: stdhttp.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	if s.db == nil {
		resp.Body.Database = "unconfigured"
		return resp, nil
	}

	sqlDB, err := database.SQLDB(s.db)
	if err != nil {
		s.recordError(ctx, err, "obtaining sql db", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	} else if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		s.recordError(ctx, pingErr, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	return resp, nil
}

// requireAdmin returns a redirect to the login page when the caller is not the
// administrator, and nil otherwise.
func (s *Server) requireAdmin(ctx context.Context, next string) *htmlResponse {
	if auth.IsAdmin(ctx) {
		return nil
	}
	return redirectResponse(stdhttp.StatusFound, "/login?next="+url.QueryEscape(next))
}

func (s *Server) entryViews(ctx context.Context, entries []blog.Entry) []templates.EntryView {
	views := make([]templates.EntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, s.entryView(ctx, entry))
	}
	return views
}

func (s *Server) entryView(ctx context.Context, entry blog.Entry) templates.EntryView {
	excerpt, err := s.renderer.Excerpt(entry.Content, excerptLength)
	if err != nil {
		s.recordError(ctx, err, "building excerpt", logrus.Fields{"slug": entry.Slug})
		excerpt = ""
	}

	escaped := url.PathEscape(entry.Slug)
	return templates.EntryView{
		Title:     entry.Title,
		URL:       entryURL(entry.Slug),
		Timestamp: entry.Timestamp.UTC().Format(timestampLayout),
		DateTime:  entry.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Excerpt:   excerpt,
		Draft:     entry.IsDraft(),
		EditURL:   "/entries/" + escaped + "/edit",
		DeleteURL: "/entries/" + escaped + "/delete",
	}
}

func entryURL(slug string) string {
	return "/entries/" + url.PathEscape(slug)
}

func (s *Server) pageResponse(ctx context.Context, status int, title, query string, body templ.Component) *htmlResponse {
	page, err := s.renderPage(ctx, title, query, body)
	if err != nil {
		s.recordError(ctx, err, "rendering page", logrus.Fields{"title": title})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render this page.")
	}
	return newHTMLResponse(status, page)
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func redirectResponse(status int, location string) *htmlResponse {
	response := newHTMLResponse(status, nil)
	response.Location = location
	return response
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

const notFoundMessage = "We couldn't find that entry."

func classifyError(err error) (int, string) {
	switch {
	case err == nil:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	case eris.Is(err, blog.ErrNotFound):
		return stdhttp.StatusNotFound, notFoundMessage
	case eris.Is(err, blog.ErrConstraintViolation):
		return stdhttp.StatusConflict, "Another entry already uses that slug. Choose a different title or slug."
	case eris.Is(err, blog.ErrInvalidEntry):
		return stdhttp.StatusBadRequest, "The entry needs a title containing at least one letter or digit."
	case eris.Is(err, auth.ErrInvalidCredentials):
		return stdhttp.StatusUnauthorized, "That password is not correct."
	default:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) *htmlResponse {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	body, err := s.renderPage(ctx, label, "", templates.ErrorPage(templates.ErrorPageData{
		StatusLabel: label,
		Message:     message,
	}))
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
		return newHTMLResponse(status, fallback)
	}

	return newHTMLResponse(status, body)
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	expected := blog.IsExpected(err) || eris.Is(err, auth.ErrInvalidCredentials)

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		if expected {
			entry.Warn(message)
		} else {
			entry.Error(message)
		}
	}

	if expected {
		return
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
