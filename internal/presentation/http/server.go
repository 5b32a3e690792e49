package http

import (
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"notebook/app/internal/domain/auth"
	"notebook/app/internal/domain/blog"
	"notebook/app/internal/presentation/markdown"
)

const defaultSiteTitle = "Notebook"

// MarkupRenderer converts entry content into HTML and plain-text excerpts.
type MarkupRenderer interface {
	Render(source string) (string, error)
	Excerpt(source string, limit int) (string, error)
}

// Options configures the HTTP server wiring.
type Options struct {
	BlogService  blog.Service
	AuthService  auth.Service
	Renderer     MarkupRenderer
	Database     *gorm.DB
	Logger       *logrus.Logger
	SentryHub    *sentry.Hub
	RateLimiter  RateLimiterSettings
	SiteTitle    string
	CookieSecure bool
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server wires the HTTP transport layer via Huma and templ components.
type Server struct {
	api          huma.API
	mux          *stdhttp.ServeMux
	blog         blog.Service
	auth         auth.Service
	renderer     MarkupRenderer
	db           *gorm.DB
	logger       *logrus.Logger
	sentry       *sentry.Hub
	rateLimiter  *RateLimiter
	siteTitle    string
	cookieSecure bool
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.BlogService == nil {
		return nil, eris.New("blog service is required")
	}
	if opts.AuthService == nil {
		return nil, eris.New("auth service is required")
	}

	renderer := opts.Renderer
	if renderer == nil {
		renderer = markdown.NewRenderer()
	}

	siteTitle := opts.SiteTitle
	if siteTitle == "" {
		siteTitle = defaultSiteTitle
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig(siteTitle, "1.0.0")

	api := humago.New(mux, config)

	srv := &Server{
		api:          api,
		mux:          mux,
		blog:         opts.BlogService,
		auth:         opts.AuthService,
		renderer:     renderer,
		db:           opts.Database,
		logger:       opts.Logger,
		sentry:       opts.SentryHub,
		siteTitle:    siteTitle,
		cookieSecure: opts.CookieSecure,
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	srv.rateLimiter = NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL)

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.mux
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.requestMiddleware(),
		s.rateLimitMiddleware(),
		s.sessionMiddleware(),
		s.loggingMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /favicon.ico", faviconHandler)
	s.mux.HandleFunc("HEAD /favicon.ico", faviconHandler)

	s.registerStaticRoute()

	s.registerIndexRoute()
	s.registerDraftsRoute()
	s.registerEntryRoute()
	s.registerCreateRoutes()
	s.registerEditRoutes()
	s.registerDeleteRoute()
	s.registerLoginRoutes()
	s.registerLogoutRoutes()
	s.registerAboutRoute()
	s.registerHealthRoute()
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.mux.ServeHTTP(w, r)
}
