package http

import (
	"context"
	stdhttp "net/http"
	"net/url"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"notebook/app/internal/domain/auth"
	"notebook/app/internal/domain/blog"
	"notebook/app/internal/presentation/http/templates"
)

const (
	sessionCookieName = "notebook_session"
	maxFormBytes      = 1 << 20
)

type loginInput struct {
	Next string `query:"next"`
}

func (s *Server) registerCreateRoutes() {
	huma.Get(s.api, "/create", s.createFormHandler, htmlOperation("New entry form", stdhttp.StatusFound))
	huma.Post(s.api, "/create", s.createHandler, htmlOperation(
		"Create an entry",
		stdhttp.StatusSeeOther,
		stdhttp.StatusFound,
		stdhttp.StatusBadRequest,
		stdhttp.StatusConflict,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerEditRoutes() {
	huma.Get(s.api, "/entries/{slug}/edit", s.editFormHandler, htmlOperation(
		"Edit entry form",
		stdhttp.StatusFound,
		stdhttp.StatusNotFound,
	))
	huma.Post(s.api, "/entries/{slug}/edit", s.editHandler, htmlOperation(
		"Update an entry",
		stdhttp.StatusSeeOther,
		stdhttp.StatusFound,
		stdhttp.StatusBadRequest,
		stdhttp.StatusNotFound,
		stdhttp.StatusConflict,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerDeleteRoute() {
	huma.Post(s.api, "/entries/{slug}/delete", s.deleteHandler, htmlOperation(
		"Delete an entry",
		stdhttp.StatusSeeOther,
		stdhttp.StatusFound,
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerLoginRoutes() {
	huma.Get(s.api, "/login", s.loginFormHandler, htmlOperation("Login form", stdhttp.StatusSeeOther))
	huma.Post(s.api, "/login", s.loginHandler, htmlOperation(
		"Log in as the administrator",
		stdhttp.StatusSeeOther,
		stdhttp.StatusBadRequest,
		stdhttp.StatusUnauthorized,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerLogoutRoutes() {
	huma.Get(s.api, "/logout", s.logoutHandler, htmlOperation("Log out", stdhttp.StatusSeeOther))
	huma.Post(s.api, "/logout", s.logoutHandler, htmlOperation("Log out", stdhttp.StatusSeeOther))
}

func (s *Server) createFormHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	if resp := s.requireAdmin(ctx, "/create"); resp != nil {
		return resp, nil
	}

	return s.entryFormResponse(ctx, stdhttp.StatusOK, newCreateForm()), nil
}

func (s *Server) createHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	if resp := s.requireAdmin(ctx, "/create"); resp != nil {
		return resp, nil
	}

	form, err := formFromContext(ctx)
	if err != nil {
		s.recordError(ctx, err, "parsing entry form", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusBadRequest, "We couldn't read the submitted form."), nil
	}

	input := entryInputFromForm(form)
	entry, err := s.blog.CreateOrUpdateEntry(ctx, input)
	if err != nil {
		data := newCreateForm()
		fillForm(&data, input)
		return s.entryFormError(ctx, err, data), nil
	}

	return redirectResponse(stdhttp.StatusSeeOther, entryURL(entry.Slug)), nil
}

func (s *Server) editFormHandler(ctx context.Context, input *slugInput) (*htmlResponse, error) {
	slug := strings.TrimSpace(input.Slug)
	if resp := s.requireAdmin(ctx, "/entries/"+url.PathEscape(slug)+"/edit"); resp != nil {
		return resp, nil
	}

	entry, err := s.blog.GetBySlug(ctx, slug)
	if err != nil {
		status, message := classifyError(err)
		s.recordError(ctx, err, "loading entry for edit", logrus.Fields{"slug": slug})
		return s.renderErrorResponse(ctx, status, message), nil
	}

	data := newEditForm(entry.Slug)
	fillForm(&data, blog.EntryInput{
		Title:     entry.Title,
		Slug:      entry.Slug,
		Content:   entry.Content,
		Published: entry.Published,
	})

	return s.entryFormResponse(ctx, stdhttp.StatusOK, data), nil
}

func (s *Server) editHandler(ctx context.Context, input *slugInput) (*htmlResponse, error) {
	slug := strings.TrimSpace(input.Slug)
	if resp := s.requireAdmin(ctx, "/entries/"+url.PathEscape(slug)+"/edit"); resp != nil {
		return resp, nil
	}

	existing, err := s.blog.GetBySlug(ctx, slug)
	if err != nil {
		status, message := classifyError(err)
		s.recordError(ctx, err, "loading entry for update", logrus.Fields{"slug": slug})
		return s.renderErrorResponse(ctx, status, message), nil
	}

	form, err := formFromContext(ctx)
	if err != nil {
		s.recordError(ctx, err, "parsing entry form", logrus.Fields{"slug": slug})
		return s.renderErrorResponse(ctx, stdhttp.StatusBadRequest, "We couldn't read the submitted form."), nil
	}

	update := entryInputFromForm(form)
	update.ID = existing.ID

	entry, err := s.blog.CreateOrUpdateEntry(ctx, update)
	if err != nil {
		data := newEditForm(existing.Slug)
		fillForm(&data, update)
		return s.entryFormError(ctx, err, data), nil
	}

	return redirectResponse(stdhttp.StatusSeeOther, entryURL(entry.Slug)), nil
}

func (s *Server) deleteHandler(ctx context.Context, input *slugInput) (*htmlResponse, error) {
	slug := strings.TrimSpace(input.Slug)
	if resp := s.requireAdmin(ctx, entryURL(slug)); resp != nil {
		return resp, nil
	}

	if err := s.blog.DeleteEntry(ctx, slug); err != nil {
		status, message := classifyError(err)
		s.recordError(ctx, err, "deleting entry", logrus.Fields{"slug": slug})
		return s.renderErrorResponse(ctx, status, message), nil
	}

	return redirectResponse(stdhttp.StatusSeeOther, "/"), nil
}

func (s *Server) loginFormHandler(ctx context.Context, input *loginInput) (*htmlResponse, error) {
	next := safeRedirectTarget(input.Next)
	if auth.IsAdmin(ctx) {
		return redirectResponse(stdhttp.StatusSeeOther, next), nil
	}

	return s.loginResponse(ctx, stdhttp.StatusOK, templates.LoginPageData{Next: next}), nil
}

func (s *Server) loginHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	form, err := formFromContext(ctx)
	if err != nil {
		s.recordError(ctx, err, "parsing login form", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusBadRequest, "We couldn't read the submitted form."), nil
	}

	next := safeRedirectTarget(form.Get("next"))

	session, err := s.auth.Login(ctx, form.Get("password"))
	if err != nil {
		status, message := classifyError(err)
		s.recordError(ctx, err, "logging in", nil)
		return s.loginResponse(ctx, status, templates.LoginPageData{Next: next, ErrorMessage: message}), nil
	}

	cookie := &stdhttp.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: stdhttp.SameSiteLaxMode,
	}

	response := redirectResponse(stdhttp.StatusSeeOther, next)
	response.SetCookie = cookie.String()
	return response, nil
}

func (s *Server) logoutHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	if req := requestFromContext(ctx); req != nil {
		if cookie, err := req.Cookie(sessionCookieName); err == nil {
			if logoutErr := s.auth.Logout(ctx, cookie.Value); logoutErr != nil {
				s.recordError(ctx, logoutErr, "logging out", nil)
			}
		}
	}

	cleared := &stdhttp.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: stdhttp.SameSiteLaxMode,
	}

	response := redirectResponse(stdhttp.StatusSeeOther, "/")
	response.SetCookie = cleared.String()
	return response, nil
}

func (s *Server) entryFormError(ctx context.Context, err error, data templates.EntryFormData) *htmlResponse {
	status, message := classifyError(err)
	s.recordError(ctx, err, "saving entry", logrus.Fields{"slug": data.Slug})

	if status == stdhttp.StatusInternalServerError || status == stdhttp.StatusNotFound {
		return s.renderErrorResponse(ctx, status, message)
	}

	data.ErrorMessage = message
	return s.entryFormResponse(ctx, status, data)
}

func (s *Server) entryFormResponse(ctx context.Context, status int, data templates.EntryFormData) *htmlResponse {
	return s.pageResponse(ctx, status, data.Heading, "", templates.EntryForm(data))
}

func (s *Server) loginResponse(ctx context.Context, status int, data templates.LoginPageData) *htmlResponse {
	return s.pageResponse(ctx, status, "Log in", "", templates.LoginPage(data))
}

func newCreateForm() templates.EntryFormData {
	return templates.EntryFormData{
		Heading:     "New entry",
		Action:      "/create",
		SubmitLabel: "Create",
		CancelURL:   "/",
	}
}

func newEditForm(slug string) templates.EntryFormData {
	escaped := url.PathEscape(slug)
	return templates.EntryFormData{
		Heading:     "Edit entry",
		Action:      "/entries/" + escaped + "/edit",
		SubmitLabel: "Save",
		CancelURL:   "/entries/" + escaped,
	}
}

func fillForm(data *templates.EntryFormData, input blog.EntryInput) {
	data.Title = input.Title
	data.Slug = input.Slug
	data.Content = input.Content
	data.Published = input.Published
}

func entryInputFromForm(form url.Values) blog.EntryInput {
	return blog.EntryInput{
		Title:     strings.TrimSpace(form.Get("title")),
		Slug:      strings.TrimSpace(form.Get("slug")),
		Content:   normalizeNewlines(form.Get("content")),
		Published: isChecked(form.Get("published")),
	}
}

func formFromContext(ctx context.Context) (url.Values, error) {
	req := requestFromContext(ctx)
	if req == nil {
		return nil, eris.New("request is unavailable")
	}

	req.Body = stdhttp.MaxBytesReader(nil, req.Body, maxFormBytes)
	if err := req.ParseForm(); err != nil {
		return nil, eris.Wrap(err, "parsing form")
	}

	return req.PostForm, nil
}

func isChecked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

// Browsers submit textarea content with CRLF line endings.
func normalizeNewlines(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// safeRedirectTarget only allows same-site absolute paths.
func safeRedirectTarget(next string) string {
	next = strings.TrimSpace(next)
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
