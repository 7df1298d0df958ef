package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"domainconfig/internal/domainconfig/models"
	"domainconfig/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

// Entities and workflows live in JSONB columns: their shape varies per
// configuration and only two nested fields are ever filtered on, so
// expression indexes on those fields cover the query surface without a
// relational schema for the sub-records.
const schema = `
CREATE TABLE IF NOT EXISTS domain_configs (
	id              UUID PRIMARY KEY,
	domain_name     TEXT NOT NULL UNIQUE,
	display_name    TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	entities        JSONB NOT NULL,
	workflows       JSONB NOT NULL,
	terminology     JSONB NOT NULL,
	custom_settings JSONB,
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_domain_configs_context_type
	ON domain_configs ((entities->>'context_type')) WHERE is_active;
CREATE INDEX IF NOT EXISTS idx_domain_configs_transaction_type
	ON domain_configs ((entities->>'transaction_type')) WHERE is_active;
`

const selectColumns = `id, domain_name, display_name, description,
	entities, workflows, terminology, custom_settings,
	is_active, created_at, updated_at`

// Postgres persists domain configurations in a single JSONB-backed table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed store over an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the table and indexes if absent.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure domain_configs schema: %w", err)
	}
	return nil
}

// Save inserts when the record has no ID and updates otherwise. Updates
// carry an optimistic version check on updated_at: the read-modify-write
// sequence spans two HTTP-layer calls, and a concurrent writer in between
// must surface as sentinel.ErrConflict rather than a lost update.
func (s *Postgres) Save(ctx context.Context, rec *models.DomainConfig) error {
	if rec.ID == "" {
		return s.insert(ctx, rec)
	}
	return s.update(ctx, rec)
}

func (s *Postgres) insert(ctx context.Context, rec *models.DomainConfig) error {
	rec.ID = uuid.NewString()
	// Truncate to Postgres timestamptz precision so the value held by the
	// caller matches what a later optimistic update will compare against.
	now := time.Now().UTC().Truncate(time.Microsecond)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO domain_configs (id, domain_name, display_name, description,
			entities, workflows, terminology, custom_settings,
			is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.DomainName, rec.DisplayName, rec.Description,
		rec.Entities, rec.Workflows, rec.Terminology, rec.CustomSettings,
		rec.IsActive, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert domain config: %w", err)
	}
	return nil
}

func (s *Postgres) update(ctx context.Context, rec *models.DomainConfig) error {
	expectedVersion := rec.UpdatedAt
	now := time.Now().UTC().Truncate(time.Microsecond)

	tag, err := s.pool.Exec(ctx, `
		UPDATE domain_configs
		SET domain_name = $2, display_name = $3, description = $4,
			entities = $5, workflows = $6, terminology = $7,
			custom_settings = $8, is_active = $9, updated_at = $10
		WHERE id = $1 AND updated_at = $11`,
		rec.ID, rec.DomainName, rec.DisplayName, rec.Description,
		rec.Entities, rec.Workflows, rec.Terminology, rec.CustomSettings,
		rec.IsActive, now, expectedVersion,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update domain config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM domain_configs WHERE id = $1)`, rec.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check domain config existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}

	rec.UpdatedAt = now
	return nil
}

// FindByName returns the active record with that domain name.
func (s *Postgres) FindByName(ctx context.Context, name string) (*models.DomainConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM domain_configs
		WHERE domain_name = $1 AND is_active`, name)

	rec, err := scanConfig(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find domain config by name: %w", err)
	}
	return rec, nil
}

// FindAllActive returns active records ordered by domain name.
func (s *Postgres) FindAllActive(ctx context.Context) ([]*models.DomainConfig, error) {
	return s.query(ctx, `
		SELECT `+selectColumns+`
		FROM domain_configs
		WHERE is_active
		ORDER BY domain_name`)
}

// Exists reports whether any record, active or not, has that domain name.
func (s *Postgres) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM domain_configs WHERE domain_name = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check domain name existence: %w", err)
	}
	return exists, nil
}

// FindByContextType filters on the JSONB sub-field. Equality only.
func (s *Postgres) FindByContextType(ctx context.Context, contextType string) ([]*models.DomainConfig, error) {
	return s.query(ctx, `
		SELECT `+selectColumns+`
		FROM domain_configs
		WHERE is_active AND entities->>'context_type' = $1
		ORDER BY domain_name`, contextType)
}

// FindPaymentRequired returns active records with the payment toggle on.
func (s *Postgres) FindPaymentRequired(ctx context.Context) ([]*models.DomainConfig, error) {
	return s.query(ctx, `
		SELECT `+selectColumns+`
		FROM domain_configs
		WHERE is_active AND (workflows->>'payment_required')::boolean IS TRUE
		ORDER BY domain_name`)
}

// FindByTransactionType filters on the JSONB sub-field. Equality only.
func (s *Postgres) FindByTransactionType(ctx context.Context, transactionType string) ([]*models.DomainConfig, error) {
	return s.query(ctx, `
		SELECT `+selectColumns+`
		FROM domain_configs
		WHERE is_active AND entities->>'transaction_type' = $1
		ORDER BY domain_name`, transactionType)
}

// DeleteAll physically removes every record. Reload path only.
func (s *Postgres) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM domain_configs`); err != nil {
		return fmt.Errorf("delete all domain configs: %w", err)
	}
	return nil
}

// Count returns the total record count, active and inactive.
func (s *Postgres) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM domain_configs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count domain configs: %w", err)
	}
	return count, nil
}

func (s *Postgres) query(ctx context.Context, sql string, args ...any) ([]*models.DomainConfig, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query domain configs: %w", err)
	}
	defer rows.Close()

	out := make([]*models.DomainConfig, 0)
	for rows.Next() {
		rec, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain config: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domain configs: %w", err)
	}
	return out, nil
}

func scanConfig(row pgx.Row) (*models.DomainConfig, error) {
	var rec models.DomainConfig
	err := row.Scan(
		&rec.ID, &rec.DomainName, &rec.DisplayName, &rec.Description,
		&rec.Entities, &rec.Workflows, &rec.Terminology, &rec.CustomSettings,
		&rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
