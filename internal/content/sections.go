package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"finitefield.org/storenav/internal/nav"
	"finitefield.org/storenav/internal/platform/requestctx"
)

// ErrNotFound is returned when the requested content does not exist.
var ErrNotFound = errors.New("content: not found")

// Source supplies the ordered sections of the storefront.
type Source interface {
	Sections(ctx context.Context) ([]nav.Section, error)
}

// SourceFunc adapts ordinary functions to Source.
type SourceFunc func(context.Context) ([]nav.Section, error)

// Sections calls f.
func (f SourceFunc) Sections(ctx context.Context) ([]nav.Section, error) {
	return f(ctx)
}

// StaticSource serves a fixed list of sections.
type StaticSource []nav.Section

// Sections returns a copy of the list.
func (s StaticSource) Sections(context.Context) ([]nav.Section, error) {
	return cloneSections(s), nil
}

type sectionsFile struct {
	Sections []sectionEntry `yaml:"sections"`
}

type sectionEntry struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// FileSource reads sections from a YAML file of the form:
//
//	sections:
//	  - id: home
//	    title: Home
//	    url: /
//
// Parsed results, and load failures, are cached for the configured TTL.
type FileSource struct {
	path string
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	cached   []nav.Section
	failure  error
	expires  time.Time
	hasCache bool
}

// replayedError marks a load failure served from the FileSource cache.
type replayedError struct{ err error }

func (e replayedError) Error() string { return e.err.Error() }
func (e replayedError) Unwrap() error { return e.err }

func isReplayed(err error) bool {
	var replay replayedError
	return errors.As(err, &replay)
}

// FileSourceOption customises a FileSource.
type FileSourceOption func(*FileSource)

// WithCacheTTL sets how long a parsed file is reused. Zero disables caching.
func WithCacheTTL(d time.Duration) FileSourceOption {
	return func(s *FileSource) {
		if d < 0 {
			d = 0
		}
		s.ttl = d
	}
}

// WithClock overrides the time source (primarily for tests).
func WithClock(now func() time.Time) FileSourceOption {
	return func(s *FileSource) {
		if now != nil {
			s.now = now
		}
	}
}

// NewFileSource constructs a FileSource for path.
func NewFileSource(path string, opts ...FileSourceOption) *FileSource {
	s := &FileSource{
		path: strings.TrimSpace(path),
		ttl:  5 * time.Minute,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sections returns the sections declared in the file, in file order.
func (s *FileSource) Sections(ctx context.Context) ([]nav.Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now()
	s.mu.RLock()
	if s.hasCache && now.Before(s.expires) {
		out, failure := cloneSections(s.cached), s.failure
		s.mu.RUnlock()
		if failure != nil {
			return nil, replayedError{err: failure}
		}
		return out, nil
	}
	s.mu.RUnlock()

	sections, err := s.load()
	if err == nil {
		requestctx.Logger(ctx).Debug("sections loaded",
			zap.String("path", s.path),
			zap.Int("count", len(sections)),
		)
	}

	if s.ttl > 0 {
		s.mu.Lock()
		s.cached = cloneSections(sections)
		s.failure = err
		s.expires = now.Add(s.ttl)
		s.hasCache = true
		s.mu.Unlock()
	}
	if err != nil {
		return nil, err
	}
	return sections, nil
}

func (s *FileSource) load() ([]nav.Section, error) {
	if s.path == "" {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("content: read sections %s: %w", s.path, err)
	}
	return ParseSections(data)
}

// ParseSections decodes a YAML sections document. Fields are trimmed but
// otherwise passed through unvalidated.
func ParseSections(data []byte) ([]nav.Section, error) {
	var doc sectionsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("content: parse sections: %w", err)
	}
	out := make([]nav.Section, 0, len(doc.Sections))
	for _, e := range doc.Sections {
		out = append(out, nav.Section{
			ID:    strings.TrimSpace(e.ID),
			Title: strings.TrimSpace(e.Title),
			URL:   strings.TrimSpace(e.URL),
		})
	}
	return out, nil
}

// FallbackSource serves Primary and switches to Fallback when Primary fails.
// Failures a FileSource replays from its cache are logged at debug so a
// missing file warns once per cache period rather than on every request.
type FallbackSource struct {
	Primary  Source
	Fallback []nav.Section
}

// Sections implements Source.
func (s FallbackSource) Sections(ctx context.Context) ([]nav.Section, error) {
	if s.Primary != nil {
		sections, err := s.Primary.Sections(ctx)
		if err == nil {
			return sections, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger := requestctx.Logger(ctx)
		if isReplayed(err) {
			logger.Debug("sections source still failing, using fallback", zap.Error(err))
		} else {
			logger.Warn("sections source failed, using fallback", zap.Error(err))
		}
	}
	return cloneSections(s.Fallback), nil
}

// DefaultSections is the built-in storefront navigation used when no
// sections file is available.
var DefaultSections = []nav.Section{
	{ID: "home", Title: "Home", URL: "/"},
	{ID: "shop", Title: "Shop", URL: "/shop"},
	{ID: "templates", Title: "Templates", URL: "/templates"},
	{ID: "guides", Title: "Guides", URL: "/guides"},
	{ID: "about", Title: "About", URL: "/about"},
}

func cloneSections(in []nav.Section) []nav.Section {
	out := make([]nav.Section, len(in))
	copy(out, in)
	return out
}
