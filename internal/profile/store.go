package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CompanyProfile is local operating knowledge about a remote company that the
// ledger itself doesn't hold: extraction hints, default journal preferences,
// operator notes.
type CompanyProfile struct {
	CompanyRef      string    `json:"company_ref"`
	DisplayName     string    `json:"display_name"`
	DefaultJournal  string    `json:"default_journal,omitempty"`
	ExtractionHints string    `json:"extraction_hints,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ErrNotFound is returned when no profile exists for a company reference.
var ErrNotFound = errors.New("company profile not found")

// Store persists company profiles in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database and verifies the connection.
func NewStore(ctx context.Context, connStr string) (*Store, error) {
	if connStr == "" {
		return nil, fmt.Errorf("database connection string not set")
	}

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Get returns the profile for a company reference.
func (s *Store) Get(ctx context.Context, companyRef string) (*CompanyProfile, error) {
	p := &CompanyProfile{}
	err := s.pool.QueryRow(ctx,
		`SELECT company_ref, display_name, default_journal, extraction_hints, notes, updated_at
		   FROM company_profiles WHERE company_ref = $1`, companyRef).
		Scan(&p.CompanyRef, &p.DisplayName, &p.DefaultJournal, &p.ExtractionHints, &p.Notes, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query company profile: %w", err)
	}
	return p, nil
}

// List returns all profiles ordered by company reference.
func (s *Store) List(ctx context.Context) ([]CompanyProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company_ref, display_name, default_journal, extraction_hints, notes, updated_at
		   FROM company_profiles ORDER BY company_ref`)
	if err != nil {
		return nil, fmt.Errorf("query company profiles: %w", err)
	}
	defer rows.Close()

	var out []CompanyProfile
	for rows.Next() {
		var p CompanyProfile
		if err := rows.Scan(&p.CompanyRef, &p.DisplayName, &p.DefaultJournal, &p.ExtractionHints, &p.Notes, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan company profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert inserts or updates a profile and returns the stored row.
func (s *Store) Upsert(ctx context.Context, p CompanyProfile) (*CompanyProfile, error) {
	if p.CompanyRef == "" {
		return nil, fmt.Errorf("company_ref is required")
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO company_profiles (company_ref, display_name, default_journal, extraction_hints, notes, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (company_ref) DO UPDATE SET
		   display_name = EXCLUDED.display_name,
		   default_journal = EXCLUDED.default_journal,
		   extraction_hints = EXCLUDED.extraction_hints,
		   notes = EXCLUDED.notes,
		   updated_at = now()
		 RETURNING updated_at`,
		p.CompanyRef, p.DisplayName, p.DefaultJournal, p.ExtractionHints, p.Notes).
		Scan(&p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert company profile: %w", err)
	}
	return &p, nil
}

// Delete removes a profile. Deleting a missing profile is not an error.
func (s *Store) Delete(ctx context.Context, companyRef string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM company_profiles WHERE company_ref = $1`, companyRef)
	if err != nil {
		return fmt.Errorf("delete company profile: %w", err)
	}
	return nil
}
