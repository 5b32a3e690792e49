package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps body in the shared page chrome: header navigation, search box and footer.
func Layout(data LayoutData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		title := data.SiteTitle
		if data.Title != "" && data.Title != data.SiteTitle {
			title = data.Title + " • " + data.SiteTitle
		}

		hw.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.raw(`<title>`)
		hw.text(title)
		hw.raw(`</title><link rel="stylesheet" href="/static/style.css">`)
		hw.raw(`<link rel="icon" href="/static/favicon.svg" type="image/svg+xml"></head><body>`)

		hw.raw(`<header class="site-header"><a class="brand" href="/">`)
		hw.text(data.SiteTitle)
		hw.raw(`</a><nav>`)
		if data.IsAdmin {
			hw.raw(`<a href="/create">New entry</a><a href="/drafts">Drafts</a>`)
			hw.raw(`<form class="inline" method="post" action="/logout"><button type="submit">Log out</button></form>`)
		} else {
			hw.raw(`<a href="/about">About</a><a href="/login">Log in</a>`)
		}
		hw.raw(`</nav><form class="search" method="get" action="/"><input type="search" name="q" placeholder="Search"`)
		hw.attr("value", data.Query)
		hw.raw(`></form></header><main>`)

		hw.component(ctx, body)

		hw.raw(`</main><footer class="site-footer">`)
		hw.text(data.SiteTitle)
		hw.raw(`</footer></body></html>`)
		return hw.err
	})
}

// IndexPage renders a list of entries; it serves the home page, drafts and search results.
func IndexPage(data IndexPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw(`<section class="entries"><h1>`)
		hw.text(data.Heading)
		hw.raw(`</h1>`)

		if len(data.Entries) == 0 {
			hw.raw(`<p class="empty">`)
			hw.text(data.EmptyMessage)
			hw.raw(`</p>`)
		}

		for _, entry := range data.Entries {
			hw.raw(`<article class="entry-summary">`)
			hw.raw(`<h2><a`)
			hw.attr("href", entry.URL)
			hw.raw(`>`)
			hw.text(entry.Title)
			hw.raw(`</a>`)
			if entry.Draft {
				hw.raw(` <span class="badge">draft</span>`)
			}
			hw.raw(`</h2><time`)
			hw.attr("datetime", entry.DateTime)
			hw.raw(`>`)
			hw.text(entry.Timestamp)
			hw.raw(`</time>`)
			if entry.ScoreLabel != "" {
				hw.raw(` <span class="score">`)
				hw.text(entry.ScoreLabel)
				hw.raw(`</span>`)
			}
			if entry.Excerpt != "" {
				hw.raw(`<p>`)
				hw.text(entry.Excerpt)
				hw.raw(`</p>`)
			}
			hw.raw(`</article>`)
		}

		hw.raw(`</section>`)
		return hw.err
	})
}

// DetailPage renders a single entry. The entry HTML is trusted output of the markup renderer.
func DetailPage(data DetailPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		entry := data.Entry

		hw.raw(`<article class="entry"><header><h1>`)
		hw.text(entry.Title)
		hw.raw(`</h1><time`)
		hw.attr("datetime", entry.DateTime)
		hw.raw(`>`)
		hw.text(entry.Timestamp)
		hw.raw(`</time>`)
		if entry.Draft {
			hw.raw(` <span class="badge">draft</span>`)
		}
		hw.raw(`</header><div class="entry-body">`)
		hw.component(ctx, RawHTML(entry.ContentHTML))
		hw.raw(`</div>`)

		if data.IsAdmin {
			hw.raw(`<footer class="entry-actions"><a`)
			hw.attr("href", entry.EditURL)
			hw.raw(`>Edit</a><form class="inline" method="post"`)
			hw.attr("action", entry.DeleteURL)
			hw.raw(`><button type="submit">Delete</button></form></footer>`)
		}

		hw.raw(`</article>`)
		return hw.err
	})
}

// EntryForm renders the create and edit form.
func EntryForm(data EntryFormData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw(`<section class="entry-form"><h1>`)
		hw.text(data.Heading)
		hw.raw(`</h1>`)
		writeFormError(hw, data.ErrorMessage)

		hw.raw(`<form method="post"`)
		hw.attr("action", data.Action)
		hw.raw(`><label>Title<input type="text" name="title" required`)
		hw.attr("value", data.Title)
		hw.raw(`></label><label>Slug<input type="text" name="slug" placeholder="derived from the title"`)
		hw.attr("value", data.Slug)
		hw.raw(`></label><label>Content<textarea name="content" rows="20">`)
		hw.text(data.Content)
		hw.raw(`</textarea></label><label class="checkbox"><input type="checkbox" name="published" value="on"`)
		if data.Published {
			hw.raw(` checked`)
		}
		hw.raw(`> Published</label><div class="actions"><button type="submit">`)
		hw.text(data.SubmitLabel)
		hw.raw(`</button>`)
		if data.CancelURL != "" {
			hw.raw(`<a`)
			hw.attr("href", data.CancelURL)
			hw.raw(`>Cancel</a>`)
		}
		hw.raw(`</div></form></section>`)
		return hw.err
	})
}

// LoginPage renders the administrator login form.
func LoginPage(data LoginPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw(`<section class="login"><h1>Log in</h1>`)
		writeFormError(hw, data.ErrorMessage)
		hw.raw(`<form method="post" action="/login"><input type="hidden" name="next"`)
		hw.attr("value", data.Next)
		hw.raw(`><label>Password<input type="password" name="password" autocomplete="current-password" required autofocus></label>`)
		hw.raw(`<button type="submit">Log in</button></form></section>`)
		return hw.err
	})
}

// AboutPage renders the about page.
func AboutPage(data AboutPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw(`<section class="about"><h1>About `)
		hw.text(data.SiteTitle)
		hw.raw(`</h1>`)
		for _, paragraph := range data.Paragraphs {
			hw.raw(`<p>`)
			hw.text(paragraph)
			hw.raw(`</p>`)
		}
		hw.raw(`</section>`)
		return hw.err
	})
}

// ErrorPage renders an error view.
func ErrorPage(data ErrorPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw(`<section class="error"><h1>`)
		hw.text(data.StatusLabel)
		hw.raw(`</h1><p>`)
		hw.text(data.Message)
		hw.raw(`</p><p><a href="/">Back to the front page</a></p></section>`)
		return hw.err
	})
}

func writeFormError(hw *htmlWriter, message string) {
	if message == "" {
		return
	}
	hw.raw(`<p class="form-error" role="alert">`)
	hw.text(message)
	hw.raw(`</p>`)
}
