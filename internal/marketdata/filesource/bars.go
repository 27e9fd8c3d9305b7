// Package filesource parses OHLCV bar exports and option-chain dumps
// (CSV or XLSX) into the model types the pipeline consumes.
package filesource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"marketfeatures/internal/model"
)

// ErrNoHeader is returned when a file needs a header row and has none.
var ErrNoHeader = errors.New("missing header row")

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	"01/02/2006",
	"2006/01/02",
}

// parseTime accepts the common export layouts and unix seconds. Times
// without a zone are taken as UTC.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

var barAliases = map[string][]string{
	"ts":     {"date", "datetime", "timestamp", "time", "open_time"},
	"open":   {"open"},
	"high":   {"high"},
	"low":    {"low"},
	"close":  {"close"},
	"volume": {"volume", "vol"},
}

// defaultBarLayout is date,open,high,low,close,volume for headerless files.
var defaultBarLayout = map[string]int{"ts": 0, "open": 1, "high": 2, "low": 3, "close": 4, "volume": 5}

// LoadBars reads CSV bars. The header row is optional; without one the
// columns are date,open,high,low,close,volume. Rows whose prices are empty
// or "null" are skipped. The result is sorted by timestamp and validated.
func LoadBars(r io.Reader) (model.BarSequence, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read bars csv: %w", err)
	}
	return parseBarRecords(records)
}

// LoadBarsFile loads bars from a .csv or .xlsx file.
func LoadBarsFile(path string) (model.BarSequence, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadBarsXLSX(path, "")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadBars(f)
}

func parseBarRecords(records [][]string) (model.BarSequence, error) {
	if len(records) == 0 {
		return nil, nil
	}

	layout := defaultBarLayout
	start := 0
	if _, err := parseTime(firstField(records[0])); err != nil {
		cols, err := headerIndex(records[0], barAliases, "ts", "open", "high", "low", "close")
		if err != nil {
			return nil, fmt.Errorf("bars header: %w", err)
		}
		layout = cols
		start = 1
	}

	bars := make(model.BarSequence, 0, len(records)-start)
	for i := start; i < len(records); i++ {
		rec := records[i]
		if blankRecord(rec) {
			continue
		}
		b, ok, err := parseBar(rec, layout)
		if err != nil {
			return nil, fmt.Errorf("bars row %d: %w", i+1, err)
		}
		if ok {
			bars = append(bars, b)
		}
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].TS.Before(bars[j].TS) })
	if err := bars.Validate(); err != nil {
		return nil, err
	}
	return bars, nil
}

func parseBar(rec []string, layout map[string]int) (model.Bar, bool, error) {
	var b model.Bar
	ts, err := parseTime(field(rec, layout["ts"]))
	if err != nil {
		return b, false, err
	}
	b.TS = ts

	prices := []struct {
		name string
		dst  *float64
	}{
		{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low}, {"close", &b.Close},
	}
	for _, p := range prices {
		raw := field(rec, layout[p.name])
		if missing(raw) {
			return b, false, nil
		}
		if *p.dst, err = parseFloat(raw); err != nil {
			return b, false, fmt.Errorf("%s: %w", p.name, err)
		}
	}

	if idx, ok := layout["volume"]; ok {
		if raw := field(rec, idx); !missing(raw) {
			if b.Volume, err = parseFloat(raw); err != nil {
				return b, false, fmt.Errorf("volume: %w", err)
			}
		}
	}
	return b, true, nil
}

// headerIndex maps canonical names to column positions. Every name in
// required must be present.
func headerIndex(header []string, aliases map[string][]string, required ...string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[normalize(h)] = i
	}
	out := make(map[string]int, len(aliases))
	for canon, names := range aliases {
		for _, n := range names {
			if i, ok := pos[n]; ok {
				out[canon] = i
				break
			}
		}
	}
	for _, name := range required {
		if _, ok := out[name]; !ok {
			return nil, fmt.Errorf("%w: no %s column in %v", ErrNoHeader, name, header)
		}
	}
	return out, nil
}

func normalize(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
}

func missing(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "nan")
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func firstField(rec []string) string { return field(rec, 0) }

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
