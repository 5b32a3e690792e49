package templates

// LayoutData carries values shared by every page.
type LayoutData struct {
	Title     string
	SiteTitle string
	Query     string
	IsAdmin   bool
}

// EntryView is an entry prepared for display in listings and on its own page.
type EntryView struct {
	Title       string
	URL         string
	Timestamp   string
	DateTime    string
	Excerpt     string
	Draft       bool
	ScoreLabel  string
	EditURL     string
	DeleteURL   string
	ContentHTML string
}

// IndexPageData bundles the public listing, drafts listing and search results.
type IndexPageData struct {
	Heading      string
	Query        string
	Entries      []EntryView
	EmptyMessage string
}

// DetailPageData holds a single rendered entry.
type DetailPageData struct {
	Entry   EntryView
	IsAdmin bool
}

// EntryFormData holds the values of the create and edit forms.
type EntryFormData struct {
	Heading      string
	Action       string
	SubmitLabel  string
	Title        string
	Slug         string
	Content      string
	Published    bool
	ErrorMessage string
	CancelURL    string
}

// LoginPageData holds the login form state.
type LoginPageData struct {
	Next         string
	ErrorMessage string
}

// AboutPageData holds the about page copy.
type AboutPageData struct {
	SiteTitle  string
	Paragraphs []string
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	StatusLabel string
	Message     string
}
