// Package sqlitedict is a word store backed by SQLite with an FTS5 index
// over headwords and definitions. Lookups are prefix matches on the headword
// column, the same shape as a "word MATCH 'term*'" query.
package sqlitedict

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"

	"github.com/sagerenn/dictd/internal/dict"

	// Register the sqlite driver.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// importChunk keeps multi-row inserts well under SQLite's variable limit.
const importChunk = 200

type Dictionary struct {
	id   string
	name string
	db   *sql.DB
}

var _ dict.Dictionary = (*Dictionary)(nil)

// Open opens (creating if needed) the database at path and applies pending
// migrations. The caller must Close it.
func Open(ctx context.Context, id, name, path string) (*Dictionary, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}
	if name == "" {
		name = id
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA busy_timeout=5000`,
		`PRAGMA synchronous=NORMAL`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Dictionary{id: id, name: name, db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (d *Dictionary) Close() error {
	return d.db.Close()
}

func (d *Dictionary) ID() string {
	return d.id
}

func (d *Dictionary) Name() string {
	return d.name
}

func (d *Dictionary) Match(ctx context.Context, term string, limit int) ([]dict.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	q := sq.Select("w.id", "w.word", "w.definition")
	if fts := ftsQuery(term); fts != "" {
		q = q.From("words_fts").
			Join("words w ON w.id = words_fts.rowid").
			Where("words_fts MATCH ?", fts)
	} else {
		q = q.From("words w")
	}
	query, args, err := q.OrderBy("w.word COLLATE NOCASE", "w.id").Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("match %q: %w", term, err)
	}
	defer rows.Close()

	out := make([]dict.Entry, 0, limit)
	for rows.Next() {
		var (
			id int64
			e  dict.Entry
		)
		if err := rows.Scan(&id, &e.Word, &e.Definition); err != nil {
			return nil, err
		}
		e.ID = strconv.FormatInt(id, 10)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *Dictionary) Entry(ctx context.Context, id string) (dict.Entry, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return dict.Entry{}, fmt.Errorf("entry %q in %s: %w", id, d.id, dict.ErrNotFound)
	}
	query, args, err := sq.Select("word", "definition").From("words").Where(sq.Eq{"id": n}).ToSql()
	if err != nil {
		return dict.Entry{}, err
	}
	e := dict.Entry{ID: id}
	err = d.db.QueryRowContext(ctx, query, args...).Scan(&e.Word, &e.Definition)
	if errors.Is(err, sql.ErrNoRows) {
		return dict.Entry{}, fmt.Errorf("entry %q in %s: %w", id, d.id, dict.ErrNotFound)
	}
	if err != nil {
		return dict.Entry{}, fmt.Errorf("entry %q in %s: %w", id, d.id, err)
	}
	return e, nil
}

// Import inserts entries in a single transaction and returns how many were
// written. Entries without a word or definition are skipped.
func (d *Dictionary) Import(ctx context.Context, entries []dict.Entry) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	written := 0
	ins := sq.Insert("words").Columns("word", "definition")
	pending := 0
	flush := func() error {
		if pending == 0 {
			return nil
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert words: %w", err)
		}
		written += pending
		pending = 0
		ins = sq.Insert("words").Columns("word", "definition")
		return nil
	}

	for _, e := range entries {
		word := strings.TrimSpace(e.Word)
		def := strings.TrimSpace(e.Definition)
		if word == "" || def == "" {
			continue
		}
		ins = ins.Values(word, def)
		pending++
		if pending == importChunk {
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := flush(); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}

func (d *Dictionary) Count(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM words`).Scan(&n)
	return n, err
}

// ftsQuery turns free text into a prefix phrase on the word column. An empty
// term yields "" so the caller can skip MATCH, which rejects empty queries.
func ftsQuery(term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return ""
	}
	return `word : "` + strings.ReplaceAll(term, `"`, `""`) + `"*`
}
