package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/confluence/strategy"
	"github.com/rustyeddy/confluence/trade"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Append inserts all records in one transaction. Existing IDs are ignored.
func (j *SQLite) Append(ctx context.Context, recs ...Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO trades
		(id, position_id, exit_time, direction, qty, entry_price, exit_price, pnl, reason, balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.PositionID, r.ExitTime.UTC().Format(timeLayout), r.Direction.String(),
			r.Qty, r.EntryPrice, r.ExitPrice, r.PnL, string(r.Reason), r.Balance,
		); err != nil {
			return fmt.Errorf("insert %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

const selectTrades = `
	SELECT id, position_id, exit_time, direction, qty, entry_price, exit_price, pnl, reason, balance
	FROM trades`

func (j *SQLite) List(ctx context.Context) ([]Record, error) {
	return j.query(ctx, selectTrades+` ORDER BY exit_time ASC, rowid ASC`)
}

// Get returns a single record by ID.
func (j *SQLite) Get(ctx context.Context, id string) (Record, error) {
	recs, err := j.query(ctx, selectTrades+` WHERE id = ?`, id)
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return recs[0], nil
}

// ClosedBetween returns records whose exit_time is within [start, end).
func (j *SQLite) ClosedBetween(ctx context.Context, start, end time.Time) ([]Record, error) {
	return j.query(ctx, selectTrades+`
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC, rowid ASC`,
		start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
}

func (j *SQLite) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec      Record
			exitTime string
			dir      string
			reason   string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.PositionID,
			&exitTime,
			&dir,
			&rec.Qty,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.PnL,
			&reason,
			&rec.Balance,
		); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, exitTime)
		if err != nil {
			return nil, fmt.Errorf("record %s exit_time: %w", rec.ID, err)
		}
		d, err := strategy.ParseDirection(dir)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		rec.ExitTime = t
		rec.Direction = d
		rec.Reason = trade.Reason(reason)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
