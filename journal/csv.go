package journal

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rustyeddy/confluence/strategy"
	"github.com/rustyeddy/confluence/trade"
)

var csvHeader = []string{"id", "position_id", "exit_time", "type", "qty", "entry_price", "exit_price", "pnl", "reason", "balance"}

// CSV appends records to a CSV file, writing the header when the file is
// created.
type CSV struct {
	mu   sync.Mutex
	path string
	file *os.File
	seen map[string]bool
}

func NewCSV(path string) (*CSV, error) {
	existing, err := ReadCSVFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if st.Size() == 0 {
		w := csv.NewWriter(file)
		if err := w.Write(csvHeader); err != nil {
			file.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			file.Close()
			return nil, err
		}
	}

	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.ID] = true
	}
	return &CSV{path: path, file: file, seen: seen}, nil
}

// Append writes all new records in a single write.
func (j *CSV) Append(_ context.Context, recs ...Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	var ids []string
	batch := map[string]bool{}
	for _, r := range recs {
		if j.seen[r.ID] || batch[r.ID] {
			continue
		}
		if err := w.Write(row(r)); err != nil {
			return err
		}
		batch[r.ID] = true
		ids = append(ids, r.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if _, err := j.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append %s: %w", j.path, err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", j.path, err)
	}
	for _, id := range ids {
		j.seen[id] = true
	}
	return nil
}

func (j *CSV) List(context.Context) ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ReadCSVFile(j.path)
}

func (j *CSV) Close() error {
	return j.file.Close()
}

// ReadCSVFile reads a trade log written by CSV.
func ReadCSVFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	var out []Record
	line := 0
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && fields[0] == csvHeader[0] {
			continue
		}
		rec, err := parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func row(r Record) []string {
	side := "BUY"
	if r.Direction == strategy.Short {
		side = "SELL"
	}
	return []string{
		r.ID,
		r.PositionID,
		r.ExitTime.Format(time.RFC3339Nano),
		side,
		strconv.Itoa(r.Qty),
		f(r.EntryPrice),
		f(r.ExitPrice),
		f(r.PnL),
		string(r.Reason),
		f(r.Balance),
	}
}

func parseRow(fields []string) (Record, error) {
	var (
		rec  Record
		err  error
		errs []error
	)
	num := func(name, s string) float64 {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return v
	}

	rec.ID = fields[0]
	rec.PositionID = fields[1]
	if rec.ExitTime, err = time.Parse(time.RFC3339Nano, fields[2]); err != nil {
		errs = append(errs, fmt.Errorf("exit_time: %w", err))
	}
	if rec.Direction, err = strategy.ParseDirection(fields[3]); err != nil {
		errs = append(errs, err)
	}
	if rec.Qty, err = strconv.Atoi(fields[4]); err != nil {
		errs = append(errs, fmt.Errorf("qty: %w", err))
	}
	rec.EntryPrice = num("entry_price", fields[5])
	rec.ExitPrice = num("exit_price", fields[6])
	rec.PnL = num("pnl", fields[7])
	rec.Reason = trade.Reason(fields[8])
	rec.Balance = num("balance", fields[9])
	return rec, errors.Join(errs...)
}

// f keeps the shortest representation so values reload exactly.
func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
