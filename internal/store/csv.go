package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"hindsight/internal/domain"
)

// csvTimeLayouts are tried in order when parsing the timestamp column.
var csvTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadCSV reads a bar series for one symbol from a CSV file with the header
// timestamp,open,high,low,close,volume. Rows keep file order; each bar is
// validated as it is read and the first bad row fails the load.
func LoadCSV(path, symbol string) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col, err := csvColumns(header)
	if err != nil {
		return nil, err
	}

	var bars []domain.Bar
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bar, err := parseCSVBar(record, col, symbol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := bar.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// csvColumns maps the required column names to their indices, matching
// case-insensitively so exported spreadsheets load as-is.
func csvColumns(header []string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, want := range []string{"timestamp", "open", "high", "low", "close", "volume"} {
		if _, ok := col[want]; !ok {
			return nil, fmt.Errorf("missing column %q in header %v", want, header)
		}
	}
	return col, nil
}

func parseCSVBar(record []string, col map[string]int, symbol string) (domain.Bar, error) {
	field := func(name string) (string, error) {
		i := col[name]
		if i >= len(record) {
			return "", fmt.Errorf("row too short for column %q", name)
		}
		return strings.TrimSpace(record[i]), nil
	}

	var bar domain.Bar
	bar.Symbol = symbol

	tsRaw, err := field("timestamp")
	if err != nil {
		return bar, err
	}
	ts, err := parseCSVTime(tsRaw)
	if err != nil {
		return bar, err
	}
	bar.Timestamp = ts

	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open}, {"high", &bar.High}, {"low", &bar.Low}, {"close", &bar.Close},
	} {
		raw, err := field(f.name)
		if err != nil {
			return bar, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return bar, fmt.Errorf("parsing %s %q: %w", f.name, raw, err)
		}
		*f.dst = v
	}

	volRaw, err := field("volume")
	if err != nil {
		return bar, err
	}
	vol, err := strconv.ParseFloat(volRaw, 64)
	if err != nil {
		return bar, fmt.Errorf("parsing volume %q: %w", volRaw, err)
	}
	bar.Volume = int64(vol)
	return bar, nil
}

func parseCSVTime(raw string) (time.Time, error) {
	for _, layout := range csvTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	// Unix seconds as a fallback.
	if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
