package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Bar is one daily OHLCV record.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// CSVOptions holds options for OHLCV loading.
type CSVOptions struct {
	DateColumn  string // Column name for dates (default: "Date")
	CloseColumn string // Column name for the modelled price (default: "Close")
	// Optional columns; a column absent from the header reads as zero.
	OpenColumn   string
	HighColumn   string
	LowColumn    string
	VolumeColumn string
	DateFormat   string // Date format (default: "2006-01-02")
	Delimiter    rune   // Field delimiter (default: ',')
}

// DefaultCSVOptions returns default options for OHLCV loading.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		DateColumn:   "Date",
		CloseColumn:  "Close",
		OpenColumn:   "Open",
		HighColumn:   "High",
		LowColumn:    "Low",
		VolumeColumn: "Volume",
		DateFormat:   time.DateOnly,
		Delimiter:    ',',
	}
}

// LoadOHLCV loads daily bars from a CSV file and returns them together with
// the closing-price series.
func LoadOHLCV(filename string, opts *CSVOptions) ([]Bar, *Series, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	return LoadOHLCVFromReader(file, opts)
}

// LoadOHLCVFromReader loads daily bars from an io.Reader. Rows must be sorted
// by date ascending; rows with an empty or non-numeric close are skipped.
func LoadOHLCVFromReader(r io.Reader, opts *CSVOptions) ([]Bar, *Series, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.TrimSpace(strings.Trim(h, "\""))] = i
	}
	dateIdx, ok := cols[opts.DateColumn]
	if !ok {
		return nil, nil, fmt.Errorf("date column %q not found", opts.DateColumn)
	}
	closeIdx, ok := cols[opts.CloseColumn]
	if !ok {
		return nil, nil, fmt.Errorf("close column %q not found", opts.CloseColumn)
	}

	// field parses an optional column. Missing columns and empty or NA
	// cells read as zero; anything else must be a number.
	field := func(record []string, line int, name string) (float64, error) {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return 0, nil
		}
		cell := strings.TrimSpace(strings.Trim(record[idx], "\""))
		if missing(cell) {
			return 0, nil
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return 0, fmt.Errorf("line %d: parse %s %q: %w", line, name, cell, err)
		}
		return v, nil
	}

	var bars []Bar
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if closeIdx >= len(record) || dateIdx >= len(record) {
			continue
		}

		closeStr := strings.TrimSpace(strings.Trim(record[closeIdx], "\""))
		if missing(closeStr) {
			continue
		}
		closePrice, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			continue
		}

		dateStr := strings.TrimSpace(strings.Trim(record[dateIdx], "\""))
		date, err := time.Parse(opts.DateFormat, dateStr)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: parse date %q: %w", line, dateStr, err)
		}

		bar := Bar{Date: date, Close: closePrice}
		for _, f := range []struct {
			column string
			dst    *float64
		}{
			{opts.OpenColumn, &bar.Open},
			{opts.HighColumn, &bar.High},
			{opts.LowColumn, &bar.Low},
			{opts.VolumeColumn, &bar.Volume},
		} {
			if f.column == "" {
				continue
			}
			if *f.dst, err = field(record, line, f.column); err != nil {
				return nil, nil, err
			}
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, nil, errors.New("no valid data found in CSV")
	}

	series, err := CloseSeries(bars)
	if err != nil {
		return nil, nil, err
	}
	return bars, series, nil
}

func missing(cell string) bool {
	switch cell {
	case "", "NA", "NaN", "null":
		return true
	}
	return false
}

// CloseSeries extracts the closing-price series from bars.
func CloseSeries(bars []Bar) (*Series, error) {
	timestamps := make([]time.Time, len(bars))
	values := make([]float64, len(bars))
	for i, b := range bars {
		timestamps[i] = b.Date
		values[i] = b.Close
	}
	s, err := NewPrices(timestamps, values)
	if err != nil {
		return nil, err
	}
	s.Name = "Close"
	return s, nil
}
