package versioning

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PolarWolf314/rakau/internal/utils"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - records and record_paths
const currentSchemaVersion = 1

// JournalFile is the default database name inside the store root.
const JournalFile = ".rakau-journal.db"

// Journal records changes in a SQLite database.
type Journal struct {
	root string
	path string
	now  func() time.Time

	mu sync.Mutex
	db *sql.DB
}

// NewJournal returns a journal for the store at root. An empty path places
// the database at <root>/.rakau-journal.db. Nothing is opened until first
// use.
func NewJournal(root, path string) *Journal {
	if path == "" {
		path = filepath.Join(root, JournalFile)
	}
	return &Journal{root: root, path: path, now: time.Now}
}

func (j *Journal) Name() string { return BackendJournal }

// Path returns the database location.
func (j *Journal) Path() string { return j.path }

// Enabled reports whether the journal database exists.
func (j *Journal) Enabled(context.Context) bool {
	return utils.FileExists(j.path)
}

// Init creates the database and applies the schema.
func (j *Journal) Init(context.Context) error {
	_, err := j.open()
	return err
}

// Close releases the database handle.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func (j *Journal) open() (*sql.DB, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db != nil {
		return j.db, nil
	}

	db, err := sql.Open("sqlite3", j.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	if err := os.Chmod(j.path, 0600); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to restrict journal permissions: %w", err)
	}
	j.db = db
	return db, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("journal schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// RecordChange stores a record for the files in c.Paths whose content
// differs from the last record mentioning them. With no paths every file
// under the root and every previously recorded file is considered.
func (j *Journal) RecordChange(ctx context.Context, c Change) (Record, error) {
	db, err := j.open()
	if err != nil {
		return Record{}, err
	}

	paths := dedupePaths(c.Paths)
	if len(paths) == 0 {
		if paths, err = j.allPaths(ctx, db); err != nil {
			return Record{}, err
		}
	}

	type touched struct {
		path   string
		digest sql.NullString
	}
	var changed []touched
	for _, p := range paths {
		current, err := j.digest(p)
		if err != nil {
			return Record{}, err
		}
		last, known, err := lastDigest(ctx, db, p)
		if err != nil {
			return Record{}, err
		}
		if known && last == current {
			continue
		}
		if !known && !current.Valid {
			continue
		}
		changed = append(changed, touched{path: p, digest: current})
	}
	if len(changed) == 0 {
		return Record{}, nil
	}

	rec := Record{
		ID:      uuid.NewString(),
		Message: c.Message,
		Author:  c.Author,
		Time:    j.now().UTC(),
	}
	if rec.Author == "" {
		rec.Author = utils.CurrentUser()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("failed to begin journal transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO records (id, tx_id, message, author, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, c.TxID, rec.Message, rec.Author, rec.Time.Format(time.RFC3339Nano))
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert record: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("failed to read record id: %w", err)
	}
	for _, t := range changed {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO record_paths (record_seq, path, digest) VALUES (?, ?, ?)`,
			seq, t.path, t.digest); err != nil {
			return Record{}, fmt.Errorf("failed to insert record path: %w", err)
		}
		rec.Paths = append(rec.Paths, t.path)
	}
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("failed to commit journal transaction: %w", err)
	}
	return rec, nil
}

// History returns records newest first.
func (j *Journal) History(ctx context.Context, limit int) ([]Record, error) {
	if !j.Enabled(ctx) {
		return nil, nil
	}
	db, err := j.open()
	if err != nil {
		return nil, err
	}

	query := `SELECT seq, id, message, author, recorded_at FROM records ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var records []Record
	var seqs []int64
	for rows.Next() {
		var (
			r   Record
			seq int64
			at  string
		)
		if err := rows.Scan(&seq, &r.ID, &r.Message, &r.Author, &at); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			r.Time = t
		}
		records = append(records, r)
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	for i, seq := range seqs {
		paths, err := recordPaths(ctx, db, seq)
		if err != nil {
			return nil, err
		}
		records[i].Paths = paths
	}
	return records, nil
}

func recordPaths(ctx context.Context, db *sql.DB, seq int64) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT path FROM record_paths WHERE record_seq = ? ORDER BY path`, seq)
	if err != nil {
		return nil, fmt.Errorf("failed to query record paths: %w", err)
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan record path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func lastDigest(ctx context.Context, db *sql.DB, path string) (sql.NullString, bool, error) {
	var d sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT digest FROM record_paths WHERE path = ? ORDER BY record_seq DESC LIMIT 1`, path).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.NullString{}, false, nil
	}
	if err != nil {
		return sql.NullString{}, false, fmt.Errorf("failed to query last record of %s: %w", path, err)
	}
	return d, true, nil
}

// digest hashes the current content of a root-relative file. A missing
// file yields an invalid NullString.
func (j *Journal) digest(rel string) (sql.NullString, error) {
	data, err := utils.ReadFileIfExists(filepath.Join(j.root, filepath.FromSlash(rel)))
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	if data == nil {
		return sql.NullString{}, nil
	}
	sum := sha256.Sum256(data)
	return sql.NullString{String: hex.EncodeToString(sum[:]), Valid: true}, nil
}

// allPaths lists every file under the root worth versioning together with
// every path the journal already knows.
func (j *Journal) allPaths(ctx context.Context, db *sql.DB) ([]string, error) {
	journalBase := filepath.Base(j.path)
	var paths []string
	err := filepath.WalkDir(j.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != j.root && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || utils.IsTempFile(name) || strings.HasPrefix(name, journalBase) {
			return nil
		}
		rel, err := filepath.Rel(j.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan store: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT DISTINCT path FROM record_paths`)
	if err != nil {
		return nil, fmt.Errorf("failed to query known paths: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan known path: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dedupePaths(paths), nil
}
