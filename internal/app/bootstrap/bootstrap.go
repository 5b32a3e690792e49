package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"notebook/app/internal/archive"
	datablog "notebook/app/internal/data/blog"
	"notebook/app/internal/data/database"
	"notebook/app/internal/data/migrations"
	"notebook/app/internal/data/session"
	"notebook/app/internal/domain/auth"
	domainblog "notebook/app/internal/domain/blog"
	"notebook/app/internal/platform/config"
	presentationhttp "notebook/app/internal/presentation/http"
	"notebook/app/internal/presentation/markdown"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

// Core holds the storage and domain layers shared by the server and the CLI.
type Core struct {
	BlogService domainblog.Service
	Archive     *archive.Archive
	Database    *gorm.DB
	Cleanup     func() error
}

type Result struct {
	Core
	AuthService auth.Service
	HTTPServer  *presentationhttp.Server
}

// BuildCore opens the database, applies migrations and wires the blog service.
func BuildCore(ctx context.Context, deps Dependencies) (Core, error) {
	opts := database.Options{Path: deps.Config.DBPath}
	if deps.Logger != nil {
		opts.Logger = database.NewGormLogger(deps.Logger)
	}

	db, err := database.Open(opts)
	if err != nil {
		return Core{}, eris.Wrap(err, "opening database")
	}

	closeOnError := func(wrapper error) (Core, error) {
		if closeErr := database.Close(db); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Core{}, wrapper
	}

	if err := migrations.MigrateBlog(ctx, db, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running blog migrations"))
	}

	repo, err := datablog.NewRepository(db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating blog repository"))
	}

	blogService, err := domainblog.NewService(repo, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating blog service"))
	}

	entryArchive, err := archive.New(blogService, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating archive"))
	}

	return Core{
		BlogService: blogService,
		Archive:     entryArchive,
		Database:    db,
		Cleanup: func() error {
			return database.Close(db)
		},
	}, nil
}

// Build composes the Notebook application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	core, err := BuildCore(ctx, deps)
	if err != nil {
		return Result{}, err
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := core.Cleanup(); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, wrapper
	}

	store, err := session.NewStore(core.Database, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating session store"))
	}

	authService, err := auth.NewService(auth.Options{
		Store:         store,
		AdminPassword: deps.Config.AdminPassword,
		SessionTTL:    deps.Config.SessionTTL,
		Logger:        deps.Logger,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating auth service"))
	}

	httpServer, err := presentationhttp.NewServer(presentationhttp.Options{
		BlogService:  core.BlogService,
		AuthService:  authService,
		Renderer:     markdown.NewRenderer(),
		Database:     core.Database,
		Logger:       deps.Logger,
		SentryHub:    deps.SentryHub,
		SiteTitle:    deps.Config.SiteTitle,
		CookieSecure: deps.Config.CookieSecure,
		RateLimiter: presentationhttp.RateLimiterSettings{
			Burst:             deps.Config.RateLimit.Burst,
			RequestsPerSecond: deps.Config.RateLimit.PerSecond,
			ClientTTL:         deps.Config.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	cleanup := core.Cleanup
	core.Cleanup = func() error {
		httpServer.Close()
		return cleanup()
	}

	return Result{
		Core:        core,
		AuthService: authService,
		HTTPServer:  httpServer,
	}, nil
}
