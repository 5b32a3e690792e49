package http

import (
	"bytes"
	"context"

	"github.com/a-h/templ"
	"github.com/rotisserie/eris"

	"notebook/app/internal/domain/auth"
	"notebook/app/internal/presentation/http/templates"
)

func renderComponent(ctx context.Context, component templ.Component) ([]byte, error) {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return nil, eris.Wrap(err, "error rendering component")
	}
	return buf.Bytes(), nil
}

// renderPage wraps body in the site layout.
func (s *Server) renderPage(ctx context.Context, title, query string, body templ.Component) ([]byte, error) {
	layout := templates.Layout(templates.LayoutData{
		Title:     title,
		SiteTitle: s.siteTitle,
		Query:     query,
		IsAdmin:   auth.IsAdmin(ctx),
	}, body)

	return renderComponent(ctx, layout)
}
