package labelstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/matthewbaird/reviewsummary/internal/labeldoc"
)

// DriverName is the database/sql driver SQLiteStore expects.
const DriverName = "sqlite"

const table = "label_documents"

var columns = []string{"id", "name", "body", "version", "digest", "size", "created_at", "updated_at"}

// SQLiteStore implements Store on a SQLite database. Timestamps are stored
// as Unix milliseconds.
type SQLiteStore struct {
	db       *sql.DB
	sql      *entsql.DialectBuilder
	maxBytes int64
}

// NewSQLiteStore creates a SQLiteStore. Call Migrate before first use.
func NewSQLiteStore(db *sql.DB, maxBytes int64) *SQLiteStore {
	return &SQLiteStore{
		db:       db,
		sql:      entsql.Dialect(dialect.SQLite),
		maxBytes: NormalizeMaxBytes(maxBytes),
	}
}

// OpenSQLite opens the database at dsn. In-memory databases are limited
// to one connection so every query sees the same database.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates the label_documents table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS label_documents (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			body       TEXT NOT NULL,
			version    INTEGER NOT NULL,
			digest     TEXT NOT NULL,
			size       INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_label_documents_name
			ON label_documents (name, id);
	`)
	if err != nil {
		return fmt.Errorf("migrating label_documents: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, name string, body []byte) (*Document, error) {
	if err := checkBody(name, body, s.maxBytes); err != nil {
		return nil, err
	}
	d := newDocument(name, body, now())

	query, args := s.sql.Insert(table).
		Columns(columns...).
		Values(d.ID.String(), d.Name, string(d.Body), d.Version, d.Digest, d.Size,
			d.CreatedAt.UnixMilli(), d.UpdatedAt.UnixMilli()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("inserting label document: %w", err)
	}
	return d, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	query, args := s.sql.Select(columns...).
		From(s.sql.Table(table)).
		Where(entsql.EQ("id", id.String())).
		Query()
	d, err := scanDocument(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying label document: %w", err)
	}
	return d, nil
}

func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]Document, int, error) {
	where := func(sel *entsql.Selector) *entsql.Selector {
		if opts.NamePrefix != "" {
			sel.Where(entsql.HasPrefix("name", opts.NamePrefix))
		}
		return sel
	}

	countQuery, countArgs := where(s.sql.Select(entsql.Count("*")).From(s.sql.Table(table))).Query()
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting label documents: %w", err)
	}

	sel := where(s.sql.Select(columns...).From(s.sql.Table(table))).
		OrderBy(entsql.Asc("name"), entsql.Asc("id")).
		Limit(opts.limit())
	if opts.Offset > 0 {
		sel.Offset(opts.Offset)
	}
	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying label documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning label document: %w", err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating label documents: %w", err)
	}
	return docs, total, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id uuid.UUID, u Update) (*Document, error) {
	if err := checkBody(u.Name, u.Body, s.maxBytes); err != nil {
		return nil, err
	}

	pred := entsql.EQ("id", id.String())
	if u.IfVersion != 0 {
		pred = entsql.And(pred, entsql.EQ("version", u.IfVersion))
	}
	query, args := s.sql.Update(table).
		Set("name", strings.TrimSpace(u.Name)).
		Set("body", string(u.Body)).
		Set("digest", labeldoc.Digest(u.Body)).
		Set("size", len(u.Body)).
		Set("updated_at", now().UnixMilli()).
		Add("version", 1).
		Where(pred).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating label document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating label document: %w", err)
	}
	if n == 0 {
		// Either the row is gone or the version moved on.
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrVersionConflict
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, id uuid.UUID) error {
	query, args := s.sql.Delete(table).Where(entsql.EQ("id", id.String())).Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting label document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting label document: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var (
		d                Document
		id, body         string
		created, updated int64
	)
	if err := row.Scan(&id, &d.Name, &body, &d.Version, &d.Digest, &d.Size, &created, &updated); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("bad document id %q: %w", id, err)
	}
	d.ID = parsed
	d.Body = []byte(body)
	d.CreatedAt = time.UnixMilli(created).UTC()
	d.UpdatedAt = time.UnixMilli(updated).UTC()
	return &d, nil
}
