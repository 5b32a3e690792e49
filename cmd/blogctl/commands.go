package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"notebook/app/internal/archive"
	"notebook/app/internal/domain/blog"
)

const listDateLayout = "2006-01-02"

func newListCmd(c *cli) *cobra.Command {
	var drafts bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List published entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				entries []blog.Entry
				err     error
			)
			if drafts {
				entries, err = c.core.BlogService.ListDrafts(cmd.Context())
			} else {
				entries, err = c.core.BlogService.ListPublic(cmd.Context())
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, entry := range entries {
				fmt.Fprintf(out, "%s\t%s\t%s\n", entry.Timestamp.UTC().Format(listDateLayout), entry.Slug, entry.Title)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&drafts, "drafts", false, "List drafts instead of published entries")
	return cmd
}

func newShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Print an entry with its front matter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := c.core.BlogService.GetBySlug(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			data, err := archive.Encode(archive.DocumentFromEntry(*entry))
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newCreateCmd(c *cli) *cobra.Command {
	var (
		title       string
		content     string
		contentFile string
		slug        string
		publish     bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an entry, or replace the one that already has its slug",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if contentFile != "" {
				if cmd.Flags().Changed("content") {
					return eris.New("--content and --content-file cannot be combined")
				}
				data, err := readContentFile(cmd.InOrStdin(), contentFile)
				if err != nil {
					return err
				}
				content = data
			}

			input := blog.EntryInput{
				Title:     title,
				Slug:      slug,
				Content:   content,
				Published: publish,
			}

			lookup := blog.Slugify(slug)
			if lookup == "" {
				lookup = blog.Slugify(title)
			}
			if lookup != "" {
				existing, err := c.core.BlogService.GetBySlug(cmd.Context(), lookup)
				switch {
				case err == nil:
					input.ID = existing.ID
				case !eris.Is(err, blog.ErrNotFound):
					return err
				}
			}

			entry, err := c.core.BlogService.CreateOrUpdateEntry(cmd.Context(), input)
			if err != nil {
				return err
			}

			verb := "created"
			if input.ID != 0 {
				verb = "updated"
			}
			state := "draft"
			if entry.Published {
				state = "published"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", verb, entry.Slug, state)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Entry title")
	cmd.Flags().StringVar(&content, "content", "", "Entry body in Markdown")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "Read the body from a file, or - for stdin")
	cmd.Flags().StringVar(&slug, "slug", "", "Explicit slug (derived from the title by default)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish the entry instead of saving a draft")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete an entry and its search record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.core.BlogService.DeleteEntry(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newSearchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "Search published entries, best match first",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := c.core.BlogService.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, result := range results {
				fmt.Fprintf(out, "%.3f\t%s\t%s\n", result.Score, result.Entry.Slug, result.Entry.Title)
			}
			return nil
		},
	}
}

func newReindexCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the stored entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			count, err := c.core.BlogService.Reindex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d entries\n", count)
			return nil
		},
	}
}

func newExportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every entry to <dir> as Markdown with front matter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := c.core.Archive.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d entries to %s\n", written, args[0])
			return nil
		},
	}
}

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <glob>",
		Short: "Import Markdown files matching <glob>; ** matches nested directories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.core.Archive.Import(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d new and %d updated entries\n", result.Created, result.Updated)
			return nil
		},
	}
}

func readContentFile(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", eris.Wrap(err, "reading content from stdin")
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "reading content file %s", path)
	}
	return string(data), nil
}
