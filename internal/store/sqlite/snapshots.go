package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/store"
)

// GetSnapshot implements store.SnapshotStore.
func (s *Store) GetSnapshot(ctx context.Context, pairID string) (*records.Snapshot, error) {
	var (
		snap             records.Snapshot
		aMod, bMod       sql.NullTime
		aComments, bComm sql.NullInt64
		taken            time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT pair_id,
			a_name, a_description, a_state, a_completed, a_modified_at, a_comments,
			b_name, b_description, b_state, b_completed, b_modified_at, b_comments,
			taken_at
		FROM snapshots WHERE pair_id = ?
	`, pairID).Scan(
		&snap.PairID,
		&snap.A.Name, &snap.A.Description, &snap.A.State, &snap.A.Completed, &aMod, &aComments,
		&snap.B.Name, &snap.B.Description, &snap.B.State, &snap.B.Completed, &bMod, &bComm,
		&taken,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapStore("get", "snapshot", pairID, err)
	}

	snap.A.ModifiedAt = fromNullTime(aMod)
	snap.B.ModifiedAt = fromNullTime(bMod)
	snap.A.Comments = fromNullInt(aComments)
	snap.B.Comments = fromNullInt(bComm)
	snap.TakenAt = utc.Time{Time: taken.UTC()}
	return &snap, nil
}

// UpsertSnapshot implements store.SnapshotStore.
func (s *Store) UpsertSnapshot(ctx context.Context, snap *records.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (pair_id,
			a_name, a_description, a_state, a_completed, a_modified_at, a_comments,
			b_name, b_description, b_state, b_completed, b_modified_at, b_comments,
			taken_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pair_id) DO UPDATE SET
			a_name = excluded.a_name,
			a_description = excluded.a_description,
			a_state = excluded.a_state,
			a_completed = excluded.a_completed,
			a_modified_at = excluded.a_modified_at,
			a_comments = excluded.a_comments,
			b_name = excluded.b_name,
			b_description = excluded.b_description,
			b_state = excluded.b_state,
			b_completed = excluded.b_completed,
			b_modified_at = excluded.b_modified_at,
			b_comments = excluded.b_comments,
			taken_at = excluded.taken_at
	`, snap.PairID,
		snap.A.Name, snap.A.Description, snap.A.State, snap.A.Completed, nullTime(snap.A.ModifiedAt), nullInt(snap.A.Comments),
		snap.B.Name, snap.B.Description, snap.B.State, snap.B.Completed, nullTime(snap.B.ModifiedAt), nullInt(snap.B.Comments),
		snap.TakenAt.Time.UTC(),
	)
	return errors.WrapStore("upsert", "snapshot", snap.PairID, err)
}

// AppendChanges implements store.ChangeLog.
func (s *Store) AppendChanges(ctx context.Context, changes ...records.ChangeRecord) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapStore("append", "change", "", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO changes (id, pair_id, side, field, old_value, new_value, edited_at, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.WrapStore("append", "change", "", err)
	}
	defer stmt.Close()

	for _, c := range changes {
		if _, err := stmt.ExecContext(ctx, c.ID, c.PairID, string(c.Side), c.Field, c.OldValue, c.NewValue,
			nullTime(c.EditedAt), c.DetectedAt.Time.UTC()); err != nil {
			return errors.WrapStore("append", "change", c.ID, err)
		}
	}
	return errors.WrapStore("append", "change", "", tx.Commit())
}

// ListChanges implements store.ChangeLog.
func (s *Store) ListChanges(ctx context.Context, filter store.ChangeFilter) ([]records.ChangeRecord, error) {
	query := `SELECT id, pair_id, side, field, old_value, new_value, edited_at, detected_at FROM changes`
	args := []any{}
	if filter.PairID != "" {
		query += ` WHERE pair_id = ?`
		args = append(args, filter.PairID)
	}
	query += ` ORDER BY detected_at DESC, seq DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapStore("list", "change", "", err)
	}
	defer rows.Close()

	out := make([]records.ChangeRecord, 0)
	for rows.Next() {
		var (
			c        records.ChangeRecord
			side     string
			edited   sql.NullTime
			detected time.Time
		)
		if err := rows.Scan(&c.ID, &c.PairID, &side, &c.Field, &c.OldValue, &c.NewValue, &edited, &detected); err != nil {
			return nil, errors.WrapStore("list", "change", "", err)
		}
		c.Side = records.Side(side)
		c.EditedAt = fromNullTime(edited)
		c.DetectedAt = utc.Time{Time: detected.UTC()}
		out = append(out, c)
	}
	return out, errors.WrapStore("list", "change", "", rows.Err())
}

func fromNullTime(t sql.NullTime) *utc.Time {
	if !t.Valid {
		return nil
	}
	return &utc.Time{Time: t.Time.UTC()}
}

func fromNullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	return records.IntPtr(int(n.Int64))
}
