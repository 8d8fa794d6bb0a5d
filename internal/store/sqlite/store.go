// Package sqlite provides a store.Store backed by a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/agentstation/utc"
	"github.com/mattn/go-sqlite3"

	"github.com/agentstation/tasklink/pkg/constants"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/store"
)

// Store persists pairs, snapshots and changes in SQLite.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// DefaultPath returns the database path under the XDG data directory,
// creating parent directories as needed.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join("tasklink", "tasklink.db"))
}

// Open opens (or creates) the database at path in WAL mode with foreign
// keys enforced, and initializes the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, errors.WrapStore("open", "database", path, err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.WrapStore("open", "database", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, errors.WrapStore("migrate", "database", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const pairColumns = `id, source_id, source_name, target_id, target_name, method, confidence, created_at, synced_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPair(row rowScanner) (*records.LinkedPair, error) {
	var (
		p        records.LinkedPair
		sourceID sql.NullString
		targetID sql.NullString
		method   string
		created  time.Time
		synced   sql.NullTime
	)
	if err := row.Scan(&p.ID, &sourceID, &p.SourceName, &targetID, &p.TargetName, &method, &p.Confidence, &created, &synced); err != nil {
		return nil, err
	}
	p.SourceID = sourceID.String
	p.TargetID = targetID.String
	p.Method = records.Method(method)
	p.CreatedAt = utc.Time{Time: created.UTC()}
	if synced.Valid {
		p.SyncedAt = &utc.Time{Time: synced.Time.UTC()}
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *utc.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.Time.UTC(), Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

// GetPair implements store.PairReader.
func (s *Store) GetPair(ctx context.Context, id string) (*records.LinkedPair, error) {
	p, err := scanPair(s.db.QueryRowContext(ctx, `SELECT `+pairColumns+` FROM pairs WHERE id = ?`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("pair", id)
	}
	if err != nil {
		return nil, errors.WrapStore("get", "pair", id, err)
	}
	return p, nil
}

// FindPair implements store.PairReader.
func (s *Store) FindPair(ctx context.Context, side records.Side, recordID string) (*records.LinkedPair, error) {
	column := "source_id"
	if side == records.SideB {
		column = "target_id"
	}
	p, err := scanPair(s.db.QueryRowContext(ctx, `SELECT `+pairColumns+` FROM pairs WHERE `+column+` = ?`, recordID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("pair for record", recordID)
	}
	if err != nil {
		return nil, errors.WrapStore("find", "pair", recordID, err)
	}
	return p, nil
}

// ListPairs implements store.PairReader.
func (s *Store) ListPairs(ctx context.Context) ([]*records.LinkedPair, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+pairColumns+` FROM pairs ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.WrapStore("list", "pair", "", err)
	}
	defer rows.Close()

	out := make([]*records.LinkedPair, 0)
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, errors.WrapStore("list", "pair", "", err)
		}
		out = append(out, p)
	}
	return out, errors.WrapStore("list", "pair", "", rows.Err())
}

// CreatePair implements store.PairWriter.
func (s *Store) CreatePair(ctx context.Context, pair *records.LinkedPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pairs (`+pairColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, pair.ID, nullString(pair.SourceID), pair.SourceName, nullString(pair.TargetID), pair.TargetName,
		string(pair.Method), pair.Confidence, pair.CreatedAt.Time.UTC(), nullTime(pair.SyncedAt))
	if err != nil {
		return s.constraintError(ctx, "create", pair, err)
	}
	return nil
}

// UpdatePair implements store.PairWriter.
func (s *Store) UpdatePair(ctx context.Context, pair *records.LinkedPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE pairs SET
			source_id = ?, source_name = ?, target_id = ?, target_name = ?,
			method = ?, confidence = ?, synced_at = ?
		WHERE id = ?
	`, nullString(pair.SourceID), pair.SourceName, nullString(pair.TargetID), pair.TargetName,
		string(pair.Method), pair.Confidence, nullTime(pair.SyncedAt), pair.ID)
	if err != nil {
		return s.constraintError(ctx, "update", pair, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("pair", pair.ID)
	}
	return nil
}

// DeletePair implements store.PairWriter.
func (s *Store) DeletePair(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE pair_id = ?`, id); err != nil {
		return errors.WrapStore("delete", "snapshot", id, err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM pairs WHERE id = ?`, id)
	if err != nil {
		return errors.WrapStore("delete", "pair", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("pair", id)
	}
	return nil
}

// constraintError turns unique index violations into AlreadyLinkedError.
func (s *Store) constraintError(ctx context.Context, op string, pair *records.LinkedPair, err error) error {
	var sqliteErr sqlite3.Error
	if !stderrors.As(err, &sqliteErr) || sqliteErr.Code != sqlite3.ErrConstraint {
		return errors.WrapStore(op, "pair", pair.ID, err)
	}
	for _, side := range []records.Side{records.SideA, records.SideB} {
		id := pair.SideID(side)
		if id == "" {
			continue
		}
		if other, ferr := s.FindPair(ctx, side, id); ferr == nil && other.ID != pair.ID {
			return errors.NewAlreadyLinkedError(side.String(), id, other.ID)
		}
	}
	if sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return errors.NewValidationError("id", pair.ID, "pair already exists")
	}
	return errors.WrapStore(op, "pair", pair.ID, err)
}
