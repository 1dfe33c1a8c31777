// Package seed loads catalog entries from YAML files into a store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/example/app-catalog/services/catalog/internal/rating"
	"github.com/example/app-catalog/services/catalog/internal/store"
)

// appNamespace scopes the name-based ids derived from slugs.
var appNamespace = uuid.MustParse("6f1d3c2a-8b4e-5a7f-9c0d-2e6b8a4f1c35")

// StableID is the id an entry without an explicit id gets. Seeding the same
// slug always yields the same id, so per-device votes keyed by app id survive
// a re-seed of a fresh in-memory catalog.
func StableID(slug string) string {
	return uuid.NewSHA1(appNamespace, []byte(slug)).String()
}

type File struct {
	Apps []Entry `yaml:"apps"`
}

// Entry is one app plus its optional starting rating. Entries imported from
// older catalogs may carry a count without per-star buckets.
type Entry struct {
	store.App   `yaml:",inline"`
	RatingAvg   float64     `yaml:"rating_avg"`
	RatingCount int         `yaml:"rating_count"`
	Stars       map[int]int `yaml:"stars"`
}

func (e Entry) toApp() (store.App, error) {
	a := e.App
	a.Slug = strings.TrimSpace(a.Slug)
	a.Name = strings.TrimSpace(a.Name)
	if a.Slug == "" || a.Name == "" {
		return store.App{}, errors.New("slug and name are required")
	}
	if a.ID = strings.TrimSpace(a.ID); a.ID == "" {
		a.ID = StableID(a.Slug)
	}
	if e.RatingCount < 0 || e.RatingAvg < 0 || e.RatingAvg > rating.MaxStars {
		return store.App{}, fmt.Errorf("%s: rating out of range", a.Slug)
	}
	var h rating.Histogram
	for star, n := range e.Stars {
		if star < rating.MinStars || star > rating.MaxStars || n < 0 {
			return store.App{}, fmt.Errorf("%s: bad stars bucket %d=%d", a.Slug, star, n)
		}
		h[star-1] = n
	}
	if h.Sum() != 0 && h.Sum() != e.RatingCount {
		return store.App{}, fmt.Errorf("%s: stars sum %d does not match rating_count %d", a.Slug, h.Sum(), e.RatingCount)
	}
	a.Aggregate = rating.Aggregate{Average: e.RatingAvg, Count: e.RatingCount, Histogram: h}
	if a.Aggregate.Count == 0 {
		a.Aggregate.Average = 0
	}
	return a, nil
}

// Parse decodes a seed document.
func Parse(r io.Reader) ([]store.App, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	apps := make([]store.App, 0, len(f.Apps))
	for i, e := range f.Apps {
		a, err := e.toApp()
		if err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
		apps = append(apps, a)
	}
	return apps, nil
}

func LoadFile(path string) ([]store.App, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

type Result struct {
	Created int
	Skipped int
}

// Apply creates every app whose slug is not taken yet. Existing apps are
// left alone so seeding can be repeated.
func Apply(ctx context.Context, st store.AppStore, apps []store.App) (Result, error) {
	var res Result
	for _, a := range apps {
		if _, err := st.Create(ctx, a); err != nil {
			if errors.Is(err, store.ErrSlugTaken) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("create %s: %w", a.Slug, err)
		}
		res.Created++
	}
	return res, nil
}
