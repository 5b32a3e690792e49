package archive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/natefinch/atomic"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"notebook/app/internal/domain/blog"
	applog "notebook/app/internal/platform/log"
)

const (
	fileExtension = ".md"
	filePerms     = 0o644
	dirPerms      = 0o755
)

// ImportResult counts what an import changed.
type ImportResult struct {
	Created int
	Updated int
}

// Archive exports entries to Markdown files and imports them back through the blog
// service, so every import goes through the same atomic save as the web forms.
type Archive struct {
	service blog.Service
	logger  *logrus.Entry
}

// New constructs an Archive.
func New(service blog.Service, logger *logrus.Logger) (*Archive, error) {
	if service == nil {
		return nil, eris.New("blog service is required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Archive{
		service: service,
		logger:  applog.WithComponent(logger, "archive"),
	}, nil
}

// Export writes every entry, drafts included, to dir as <slug>.md and returns the number
// of files written. Existing files are replaced atomically.
func (a *Archive) Export(ctx context.Context, dir string) (int, error) {
	public, err := a.service.ListPublic(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "listing public entries")
	}
	drafts, err := a.service.ListDrafts(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "listing drafts")
	}

	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return 0, eris.Wrapf(err, "creating export directory %s", dir)
	}

	written := 0
	for _, entry := range append(public, drafts...) {
		if err := ctx.Err(); err != nil {
			return written, eris.Wrap(err, "export cancelled")
		}

		data, err := Encode(DocumentFromEntry(entry))
		if err != nil {
			return written, eris.Wrapf(err, "encoding entry %s", entry.Slug)
		}

		path := filepath.Join(dir, entry.Slug+fileExtension)
		if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
			return written, eris.Wrapf(err, "writing %s", path)
		}
		// atomic.WriteFile leaves the temp file's restrictive mode on new files.
		if err := os.Chmod(path, filePerms); err != nil {
			return written, eris.Wrapf(err, "setting permissions on %s", path)
		}

		written++
		a.logger.WithFields(logrus.Fields{"slug": entry.Slug, "path": path}).Debug("entry exported")
	}

	a.logger.WithFields(logrus.Fields{"dir": dir, "entries": written}).Info("export finished")
	return written, nil
}

// Import saves every file matching pattern, which may use ** to descend into
// subdirectories. A document whose slug already exists replaces that entry. Files are
// processed in lexical order and the first failure stops the import.
func (a *Archive) Import(ctx context.Context, pattern string) (ImportResult, error) {
	var result ImportResult

	paths, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return result, eris.Wrapf(err, "expanding pattern %q", pattern)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, eris.Wrap(err, "import cancelled")
		}

		created, err := a.importFile(ctx, path)
		if err != nil {
			return result, eris.Wrapf(err, "importing %s", path)
		}

		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	a.logger.WithFields(logrus.Fields{
		"pattern": pattern,
		"created": result.Created,
		"updated": result.Updated,
	}).Info("import finished")

	return result, nil
}

func (a *Archive) importFile(ctx context.Context, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, eris.Wrap(err, "reading file")
	}

	doc, err := Decode(data)
	if err != nil {
		return false, err
	}

	input := doc.Input()

	slug := blog.Slugify(input.Slug)
	if slug == "" {
		slug = blog.Slugify(input.Title)
	}

	if slug != "" {
		existing, err := a.service.GetBySlug(ctx, slug)
		switch {
		case err == nil:
			input.ID = existing.ID
		case eris.Is(err, blog.ErrNotFound):
		default:
			return false, eris.Wrap(err, "looking up existing entry")
		}
	}

	entry, err := a.service.CreateOrUpdateEntry(ctx, input)
	if err != nil {
		return false, err
	}

	a.logger.WithFields(logrus.Fields{"slug": entry.Slug, "path": path}).Debug("entry imported")
	return input.ID == 0, nil
}
