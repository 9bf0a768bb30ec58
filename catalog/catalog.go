// Package catalog is the article catalog the fraud guard consults to confirm
// a claimed article exists. The catalog itself is maintained externally (a
// scraper refreshes it); this package only stores and looks up entries.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"earn-ledger/validate"
)

// Article is one first-party article known to the catalog.
type Article struct {
	ID           uint   `gorm:"primaryKey" json:"-" yaml:"-"`
	Slug         string `gorm:"uniqueIndex" json:"slug" yaml:"slug"`
	CanonicalURL string `json:"canonical_url" yaml:"canonical_url"`
	Title        string `json:"title" yaml:"title"`
	Section      string `json:"section" yaml:"section"`
	PublishedAt  string `json:"published_at" yaml:"published_at"`
}

// Lookup confirms article existence by proof-of-read slug.
type Lookup interface {
	HasSlug(ctx context.Context, slug string) (bool, error)
}

// Store is the sqlite-backed catalog.
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite catalog at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("catalog open: %w", err)
	}
	if err := db.AutoMigrate(&Article{}); err != nil {
		return nil, fmt.Errorf("catalog migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// HasSlug reports whether an article with the given slug exists.
func (s *Store) HasSlug(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Article{}).
		Where("slug = ?", strings.ToLower(slug)).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("catalog lookup: %w", err)
	}
	return n > 0, nil
}

// Seed upserts articles by slug. Entries without an explicit slug get one
// derived from their canonical URL; entries with neither are skipped.
func (s *Store) Seed(ctx context.Context, articles []Article) error {
	for _, a := range articles {
		a.Slug = strings.ToLower(strings.TrimSpace(a.Slug))
		if a.Slug == "" {
			a.Slug = validate.Slug(a.CanonicalURL)
		}
		if a.Slug == "" {
			continue
		}
		err := s.db.WithContext(ctx).
			Where(Article{Slug: a.Slug}).
			Assign(Article{
				CanonicalURL: a.CanonicalURL,
				Title:        a.Title,
				Section:      a.Section,
				PublishedAt:  a.PublishedAt,
			}).
			FirstOrCreate(&Article{}).Error
		if err != nil {
			return fmt.Errorf("catalog seed %q: %w", a.Slug, err)
		}
	}
	return nil
}

// Count returns the number of catalogued articles.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Article{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("catalog count: %w", err)
	}
	return n, nil
}

// LoadSeedFile reads a YAML article list: either a bare sequence or a
// document with a top-level "articles" key.
func LoadSeedFile(path string) ([]Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog seed file: %w", err)
	}
	var wrapped struct {
		Articles []Article `yaml:"articles"`
	}
	if err := yaml.Unmarshal(data, &wrapped); err == nil && len(wrapped.Articles) > 0 {
		return wrapped.Articles, nil
	}
	var plain []Article
	if err := yaml.Unmarshal(data, &plain); err != nil {
		return nil, fmt.Errorf("catalog seed file parse: %w", err)
	}
	return plain, nil
}

// Static is an in-memory Lookup keyed by slug, used in tests and as a
// fallback when no catalog database is configured.
type Static map[string]struct{}

// NewStatic builds a Static lookup from slugs.
func NewStatic(slugs ...string) Static {
	s := make(Static, len(slugs))
	for _, slug := range slugs {
		s[strings.ToLower(slug)] = struct{}{}
	}
	return s
}

func (s Static) HasSlug(_ context.Context, slug string) (bool, error) {
	_, ok := s[strings.ToLower(slug)]
	return ok, nil
}
