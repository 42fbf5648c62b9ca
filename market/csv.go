package market

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Source supplies an ordered bar sequence for the configured symbol and
// interval. Implementations return ErrNoData when they have nothing yet.
type Source interface {
	Bars(ctx context.Context) ([]Bar, error)
}

// CSVSource re-reads a bar CSV file on every call, so an external process
// can keep appending to it. Rows look like:
//
//	time,open,high,low,close,volume
//
// The time column may be named time, timestamp, datetime or date and
// holds RFC3339, "2006-01-02 15:04:05" or unix seconds. Header names are
// case-insensitive and unknown columns are ignored.
type CSVSource struct {
	Path     string
	Lookback int
	Location *time.Location
}

// Bars implements Source.
func (s CSVSource) Bars(ctx context.Context) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ReadCSV(f, s.Location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return Tail(bars, s.Lookback), nil
}

// LoadCSV reads every bar in path.
func LoadCSV(path string, loc *time.Location) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f, loc)
}

// ReadCSV parses a header row followed by bar rows. Empty rows are skipped.
// A nil loc means UTC for timestamps without a zone.
func ReadCSV(r io.Reader, loc *time.Location) ([]Bar, error) {
	if loc == nil {
		loc = time.UTC
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	timeCol := -1
	for _, name := range []string{"time", "timestamp", "datetime", "date"} {
		if i, ok := cols[name]; ok {
			timeCol = i
			break
		}
	}
	if timeCol < 0 {
		return nil, fmt.Errorf("missing time column in header %v", header)
	}
	for _, name := range []string{"open", "high", "low", "close"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing %s column in header %v", name, header)
		}
	}

	var out []Bar
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		var b Bar
		if timeCol >= len(row) {
			return nil, fmt.Errorf("line %d: short row", line)
		}
		if b.Time, err = parseTime(strings.TrimSpace(row[timeCol]), loc); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for _, fld := range []struct {
			name string
			dst  *float64
		}{
			{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low}, {"close", &b.Close},
		} {
			v, err := parseFinite(get(fld.name))
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s %q: %w", line, fld.name, get(fld.name), err)
			}
			*fld.dst = v
		}
		if v := get("volume"); v != "" {
			if b.Volume, err = parseFinite(v); err != nil {
				return nil, fmt.Errorf("line %d: bad volume %q: %w", line, v, err)
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).In(loc), nil
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}
