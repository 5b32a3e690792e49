package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"notebook/app/internal/app/bootstrap"
	"notebook/app/internal/platform/config"
	applog "notebook/app/internal/platform/log"
)

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries the state shared by every subcommand. core is populated by the root
// command's pre-run hook and released by execute.
type cli struct {
	dbPath   string
	logLevel string
	core     bootstrap.Core
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	c := &cli{}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := c.close(); closeErr != nil && err == nil {
		err = eris.Wrap(closeErr, "closing database")
	}
	return err
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "blogctl",
		Short: "Administer a Notebook blog database",
		Long: `blogctl reads and writes Notebook entries directly in the SQLite database.
Every write keeps the entry and its search index consistent, exactly like the web forms.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "SQLite database path (defaults to DB_PATH)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (defaults to LOG_LEVEL)")

	root.AddCommand(
		newListCmd(c),
		newShowCmd(c),
		newCreateCmd(c),
		newDeleteCmd(c),
		newSearchCmd(c),
		newReindexCmd(c),
		newExportCmd(c),
		newImportCmd(c),
	)

	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "loading configuration")
	}
	if c.dbPath != "" {
		cfg.DBPath = c.dbPath
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	logger, err := applog.NewConsoleLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return eris.Wrap(err, "initialising logger")
	}

	core, err := bootstrap.BuildCore(cmd.Context(), bootstrap.Dependencies{
		Config: *cfg,
		Logger: logger,
	})
	if err != nil {
		return eris.Wrap(err, "opening blog")
	}

	c.core = core
	return nil
}

func (c *cli) close() error {
	if c.core.Cleanup == nil {
		return nil
	}
	cleanup := c.core.Cleanup
	c.core = bootstrap.Core{}
	return cleanup()
}
