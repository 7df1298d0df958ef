// Package seed loads the packaged sample configurations into the store at
// process start. It talks to the store directly, bypassing the cache: it
// runs before any request traffic, and the reload path invalidates nothing
// the cache could have seen.
package seed

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"domainconfig/internal/domainconfig/metrics"
	"domainconfig/internal/domainconfig/models"
	"domainconfig/internal/domainconfig/validate"
)

//go:embed configs/*.json
var sampleConfigs embed.FS

var sampleFiles = []string{
	"configs/healthcare-config.json",
	"configs/ecommerce-config.json",
	"configs/cab-booking-config.json",
}

// Store is the persistence surface the loader depends on.
type Store interface {
	Save(ctx context.Context, rec *models.DomainConfig) error
	Exists(ctx context.Context, name string) (bool, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// Loader seeds the store from embedded sample documents.
type Loader struct {
	store   Store
	logger  *slog.Logger
	files   fs.FS
	names   []string
	metrics *metrics.Metrics
}

type Option func(*Loader)

// WithFiles overrides the embedded documents. Test seam.
func WithFiles(fsys fs.FS, names []string) Option {
	return func(l *Loader) {
		l.files = fsys
		l.names = names
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

// New constructs a Loader over the embedded sample configurations.
func New(store Store, logger *slog.Logger, opts ...Option) *Loader {
	l := &Loader{store: store, logger: logger, files: sampleConfigs, names: sampleFiles}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Load reads every seed document, skipping names that already exist.
// A failing file is logged and skipped; it never aborts the others.
func (l *Loader) Load(ctx context.Context) {
	l.logger.InfoContext(ctx, "loading sample domain configurations", "files", len(l.names))

	for _, name := range l.names {
		if err := l.loadFile(ctx, name); err != nil {
			l.logger.ErrorContext(ctx, "failed to load sample configuration",
				"file", name,
				"error", err,
			)
			l.recordSkipped()
		}
	}
}

func (l *Loader) loadFile(ctx context.Context, name string) error {
	data, err := fs.ReadFile(l.files, name)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var rec models.DomainConfig
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	exists, err := l.store.Exists(ctx, rec.DomainName)
	if err != nil {
		return fmt.Errorf("check seed existence: %w", err)
	}
	if exists {
		l.logger.InfoContext(ctx, "domain configuration already present, skipping",
			"domain", rec.DomainName,
		)
		l.recordSkipped()
		return nil
	}

	if err := validate.Config(&rec); err != nil {
		return fmt.Errorf("validate seed: %w", err)
	}

	now := time.Now().UTC()
	rec.IsActive = true
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := l.store.Save(ctx, &rec); err != nil {
		return fmt.Errorf("save seed: %w", err)
	}
	l.logger.InfoContext(ctx, "loaded domain configuration", "domain", rec.DomainName)
	if l.metrics != nil {
		l.metrics.SeedsLoaded.Inc()
	}
	return nil
}

// Reload wipes the store entirely and reruns the load.
func (l *Loader) Reload(ctx context.Context) error {
	l.logger.InfoContext(ctx, "reloading domain configurations")
	if err := l.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("wipe domain configurations: %w", err)
	}
	l.Load(ctx)
	return nil
}

// Initialized reports whether at least as many records exist as there are
// seed documents.
func (l *Loader) Initialized(ctx context.Context) (bool, error) {
	count, err := l.store.Count(ctx)
	if err != nil {
		return false, err
	}
	return count >= int64(len(l.names)), nil
}

// Count returns the total record count.
func (l *Loader) Count(ctx context.Context) (int64, error) {
	return l.store.Count(ctx)
}

func (l *Loader) recordSkipped() {
	if l.metrics != nil {
		l.metrics.SeedsSkipped.Inc()
	}
}
