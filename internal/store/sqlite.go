package store

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	seekerrors "github.com/seekspace/seekd/internal/errors"
)

// schema is applied on open. All writes occur inside transactions; SQLite's
// WAL mode keeps on-disk state consistent across crashes.
const schema = `
CREATE TABLE IF NOT EXISTS sources (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	source_type  TEXT NOT NULL,
	path         TEXT NOT NULL UNIQUE,
	name         TEXT NOT NULL,
	enabled      INTEGER NOT NULL DEFAULT 1,
	priority     INTEGER NOT NULL DEFAULT 0,
	auto_reindex INTEGER NOT NULL DEFAULT 0,
	notes        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL,
	last_indexed TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sources_enabled ON sources(enabled);

CREATE TABLE IF NOT EXISTS source_stats (
	source_id        INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	index_type       TEXT NOT NULL,
	files_indexed    INTEGER NOT NULL DEFAULT 0,
	bytes_indexed    INTEGER NOT NULL DEFAULT 0,
	initial_duration INTEGER NOT NULL DEFAULT 0,
	initial_at       TIMESTAMP,
	last_duration    INTEGER NOT NULL DEFAULT 0,
	last_at          TIMESTAMP,
	last_outcome     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (source_id, index_type)
);

CREATE TABLE IF NOT EXISTS file_records (
	doc_id            TEXT PRIMARY KEY,
	source_type       TEXT NOT NULL,
	source_id         INTEGER NOT NULL,
	abs_path          TEXT NOT NULL,
	rel_path          TEXT NOT NULL,
	size              INTEGER NOT NULL,
	mtime             TIMESTAMP NOT NULL,
	hash              TEXT NOT NULL,
	extension         TEXT NOT NULL,
	kind              TEXT NOT NULL,
	last_indexed_at   TIMESTAMP NOT NULL,
	last_indexed_hash TEXT NOT NULL,
	UNIQUE (source_type, source_id, rel_path)
);
CREATE INDEX IF NOT EXISTS idx_file_records_source ON file_records(source_type, source_id);
CREATE INDEX IF NOT EXISTS idx_file_records_mtime ON file_records(mtime);
`

// SQLiteStore implements MetadataStore on a single SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	lock *flock.Flock
}

var _ MetadataStore = (*SQLiteStore)(nil)

// Open opens (or creates) the metadata store at path. A file lock next to the
// database enforces the single-writer model; Open fails with Conflict when
// another process holds it.
func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, seekerrors.Transient("create data directory", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, seekerrors.Transient("acquire data directory lock", err)
	}
	if !locked {
		return nil, seekerrors.Conflict("metadata store at %s is locked by another process", path)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		_ = lock.Unlock()
		return nil, seekerrors.Transient("open metadata store", err)
	}
	// modernc.org/sqlite serializes access; a single connection avoids
	// table-lock contention between writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, seekerrors.Transient("apply metadata schema", err)
	}

	return &SQLiteStore{db: db, lock: lock}, nil
}

// Close closes the database and releases the writer lock.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return err
}

// AddSource registers a new source. Fails with Conflict if the canonicalized
// path is already registered.
func (s *SQLiteStore) AddSource(ctx context.Context, src *Source) (*Source, error) {
	canonical := Canonicalize(src.Path)
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (source_type, path, name, enabled, priority, auto_reindex, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(src.Type), canonical, src.Name, boolInt(src.Enabled), src.Priority,
		boolInt(src.AutoReindex), src.Notes, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, seekerrors.Conflict("source path already registered: %s", canonical)
		}
		return nil, seekerrors.Transient("insert source", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, seekerrors.Transient("read inserted source id", err)
	}
	return s.GetSource(ctx, id)
}

// GetSource fetches a source by id.
func (s *SQLiteStore) GetSource(ctx context.Context, id int64) (*Source, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_type, path, name, enabled, priority, auto_reindex, notes, created_at, updated_at, last_indexed
		FROM sources WHERE id = ?`, id)
	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, seekerrors.NotFound("source %d not found", id)
	}
	if err != nil {
		return nil, seekerrors.Transient("query source", err)
	}
	return src, nil
}

// UpdateSource applies a partial update of mutable fields.
func (s *SQLiteStore) UpdateSource(ctx context.Context, id int64, update SourceUpdate) (*Source, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Enabled != nil {
		sets = append(sets, "enabled = ?")
		args = append(args, boolInt(*update.Enabled))
	}
	if update.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *update.Priority)
	}
	if update.AutoReindex != nil {
		sets = append(sets, "auto_reindex = ?")
		args = append(args, boolInt(*update.AutoReindex))
	}
	if update.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *update.Notes)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE sources SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, seekerrors.Transient("update source", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, seekerrors.Transient("read update result", err)
	}
	if affected == 0 {
		return nil, seekerrors.NotFound("source %d not found", id)
	}
	return s.GetSource(ctx, id)
}

// DeleteSource removes a source and, via cascade, its stats rows. File records
// for the source are removed as well; already-indexed documents in the two
// indexes are left for a later reindex or explicit purge.
func (s *SQLiteStore) DeleteSource(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return seekerrors.Transient("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return seekerrors.Transient("delete source", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return seekerrors.Transient("read delete result", err)
	}
	if affected == 0 {
		return seekerrors.NotFound("source %d not found", id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM file_records WHERE source_id = ?`, id); err != nil {
		return seekerrors.Transient("delete file records", err)
	}

	if err := tx.Commit(); err != nil {
		return seekerrors.Transient("commit transaction", err)
	}
	return nil
}

// ListSources returns sources matching the filter, ordered by priority DESC,
// name ASC.
func (s *SQLiteStore) ListSources(ctx context.Context, filter SourceFilter) ([]*Source, error) {
	query := `
		SELECT id, source_type, path, name, enabled, priority, auto_reindex, notes, created_at, updated_at, last_indexed
		FROM sources`
	var conds []string
	var args []any
	if filter.EnabledOnly {
		conds = append(conds, "enabled = 1")
	}
	if filter.Type != "" {
		conds = append(conds, "source_type = ?")
		args = append(args, string(filter.Type))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY priority DESC, name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, seekerrors.Transient("list sources", err)
	}
	defer rows.Close()

	var sources []*Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, seekerrors.Transient("scan source row", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, seekerrors.Transient("iterate sources", err)
	}
	return sources, nil
}

// UpsertFile inserts or replaces a file record keyed by doc_id and bumps the
// source's last_indexed timestamp in the same transaction.
func (s *SQLiteStore) UpsertFile(ctx context.Context, rec *FileRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return seekerrors.Transient("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO file_records (doc_id, source_type, source_id, abs_path, rel_path, size, mtime, hash, extension, kind, last_indexed_at, last_indexed_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			source_type = excluded.source_type,
			source_id = excluded.source_id,
			abs_path = excluded.abs_path,
			rel_path = excluded.rel_path,
			size = excluded.size,
			mtime = excluded.mtime,
			hash = excluded.hash,
			extension = excluded.extension,
			kind = excluded.kind,
			last_indexed_at = excluded.last_indexed_at,
			last_indexed_hash = excluded.last_indexed_hash`,
		rec.DocID, string(rec.SourceType), rec.SourceID, rec.AbsPath, rec.RelPath,
		rec.Size, rec.ModTime.UTC(), rec.Hash, rec.Extension, rec.Kind,
		rec.LastIndexedAt.UTC(), rec.LastIndexedHash)
	if err != nil {
		return seekerrors.Transient("upsert file record", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE sources SET last_indexed = ? WHERE id = ?`,
		time.Now().UTC(), rec.SourceID)
	if err != nil {
		return seekerrors.Transient("touch source last_indexed", err)
	}

	if err := tx.Commit(); err != nil {
		return seekerrors.Transient("commit transaction", err)
	}
	return nil
}

// GetFile fetches a file record by doc_id.
func (s *SQLiteStore) GetFile(ctx context.Context, docID string) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx, fileSelect+` WHERE doc_id = ?`, docID)
	rec, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, seekerrors.NotFound("file record %s not found", docID)
	}
	if err != nil {
		return nil, seekerrors.Transient("query file record", err)
	}
	return rec, nil
}

// GetFiles fetches file records for a set of doc_ids. Missing ids are simply
// absent from the result; hydration callers drop them.
func (s *SQLiteStore) GetFiles(ctx context.Context, docIDs []string) (map[string]*FileRecord, error) {
	result := make(map[string]*FileRecord, len(docIDs))
	if len(docIDs) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(docIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(docIDs))
	for i, id := range docIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fileSelect+` WHERE doc_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, seekerrors.Transient("query file records", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, seekerrors.Transient("scan file record", err)
		}
		result[rec.DocID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, seekerrors.Transient("iterate file records", err)
	}
	return result, nil
}

// FilesBySource returns all file records for a source, keyed by doc_id.
// Used by the change detector to diff against the current scan.
func (s *SQLiteStore) FilesBySource(ctx context.Context, sourceID int64) (map[string]*FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, fileSelect+` WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, seekerrors.Transient("query files by source", err)
	}
	defer rows.Close()

	result := make(map[string]*FileRecord)
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, seekerrors.Transient("scan file record", err)
		}
		result[rec.DocID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, seekerrors.Transient("iterate file records", err)
	}
	return result, nil
}

// DeleteFilesMissing removes file records for the source whose doc_id is not
// in the observed set, returning the removed ids so callers can delete from
// both indexes.
func (s *SQLiteStore) DeleteFilesMissing(ctx context.Context, sourceID int64, observed map[string]struct{}) ([]string, error) {
	existing, err := s.FilesBySource(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	var removed []string
	for docID := range existing {
		if _, ok := observed[docID]; !ok {
			removed = append(removed, docID)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, seekerrors.Transient("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM file_records WHERE doc_id = ?`)
	if err != nil {
		return nil, seekerrors.Transient("prepare delete", err)
	}
	defer stmt.Close()

	for _, docID := range removed {
		if _, err := stmt.ExecContext(ctx, docID); err != nil {
			return nil, seekerrors.Transient("delete file record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, seekerrors.Transient("commit transaction", err)
	}
	return removed, nil
}

// RecordIndexEvent updates per-(source, index) stats. Stats failures never
// fail the caller; they are logged and dropped.
func (s *SQLiteStore) RecordIndexEvent(ctx context.Context, sourceID int64, indexType IndexType, outcome IndexOutcome, duration time.Duration) {
	now := time.Now().UTC()
	outcomeStr := "ok"
	if !outcome.Success {
		outcomeStr = outcome.Reason
		if outcomeStr == "" {
			outcomeStr = "failed"
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO source_stats (source_id, index_type, files_indexed, bytes_indexed, initial_duration, initial_at, last_duration, last_at, last_outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, index_type) DO UPDATE SET
			files_indexed = excluded.files_indexed,
			bytes_indexed = excluded.bytes_indexed,
			last_duration = excluded.last_duration,
			last_at = excluded.last_at,
			last_outcome = excluded.last_outcome`,
		sourceID, string(indexType), outcome.FilesIndexed, outcome.BytesIndexed,
		duration.Nanoseconds(), now, duration.Nanoseconds(), now, outcomeStr)
	if err != nil {
		slog.Warn("failed to record index event",
			slog.Int64("source_id", sourceID),
			slog.String("index_type", string(indexType)),
			slog.String("error", err.Error()))
	}
}

// GetStats returns stats rows for a source.
func (s *SQLiteStore) GetStats(ctx context.Context, sourceID int64) ([]*IndexStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, index_type, files_indexed, bytes_indexed, initial_duration, initial_at, last_duration, last_at, last_outcome
		FROM source_stats WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, seekerrors.Transient("query stats", err)
	}
	defer rows.Close()

	var stats []*IndexStats
	for rows.Next() {
		st := &IndexStats{}
		var indexType string
		var initialNs, lastNs int64
		var initialAt, lastAt sql.NullTime
		if err := rows.Scan(&st.SourceID, &indexType, &st.FilesIndexed, &st.BytesIndexed,
			&initialNs, &initialAt, &lastNs, &lastAt, &st.LastOutcome); err != nil {
			return nil, seekerrors.Transient("scan stats row", err)
		}
		st.IndexType = IndexType(indexType)
		st.InitialDuration = time.Duration(initialNs)
		st.LastDuration = time.Duration(lastNs)
		if initialAt.Valid {
			t := initialAt.Time
			st.InitialAt = &t
		}
		if lastAt.Valid {
			t := lastAt.Time
			st.LastAt = &t
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, seekerrors.Transient("iterate stats", err)
	}
	return stats, nil
}

const fileSelect = `
	SELECT doc_id, source_type, source_id, abs_path, rel_path, size, mtime, hash, extension, kind, last_indexed_at, last_indexed_hash
	FROM file_records`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*Source, error) {
	src := &Source{}
	var sourceType string
	var enabled, autoReindex int
	var lastIndexed sql.NullTime
	err := row.Scan(&src.ID, &sourceType, &src.Path, &src.Name, &enabled,
		&src.Priority, &autoReindex, &src.Notes, &src.CreatedAt, &src.UpdatedAt, &lastIndexed)
	if err != nil {
		return nil, err
	}
	src.Type = SourceType(sourceType)
	src.Enabled = enabled != 0
	src.AutoReindex = autoReindex != 0
	if lastIndexed.Valid {
		t := lastIndexed.Time
		src.LastIndexed = &t
	}
	return src, nil
}

func scanFile(row rowScanner) (*FileRecord, error) {
	rec := &FileRecord{}
	var sourceType string
	err := row.Scan(&rec.DocID, &sourceType, &rec.SourceID, &rec.AbsPath, &rec.RelPath,
		&rec.Size, &rec.ModTime, &rec.Hash, &rec.Extension, &rec.Kind,
		&rec.LastIndexedAt, &rec.LastIndexedHash)
	if err != nil {
		return nil, err
	}
	rec.SourceType = SourceType(sourceType)
	return rec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}
