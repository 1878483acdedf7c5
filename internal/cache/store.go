package cache

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// header is the column layout of a dataset file.
var header = []string{"date", "open", "high", "low", "close", "volume"}

// Store persists one CSV file per ticker symbol under a directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created on first save.
func NewStore(dir string) *Store { return &Store{dir: dir} }

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the dataset file of symbol.
func (s *Store) Path(symbol string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '^', r == '=', r == '_':
			return r
		}
		return '_'
	}, strings.ToUpper(symbol))
	return filepath.Join(s.dir, name+".csv")
}

// Load reads the persisted bars of symbol, sorted by date. A missing file
// yields no bars and no error.
func (s *Store) Load(symbol string) ([]model.Bar, error) {
	path := s.Path(symbol)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	bars, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDataset, path, err)
	}
	return bars, nil
}

func decode(r io.Reader) ([]model.Bar, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = len(header)
	cr.ReuseRecord = true

	first, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(first[i]), col) {
			return nil, fmt.Errorf("unexpected header %v", first)
		}
	}

	var bars []model.Bar
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		b, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		key := b.Date.Format(model.DateFormat)
		if seen[key] {
			continue // first occurrence wins
		}
		seen[key] = true
		bars = append(bars, b)
	}
	sortBars(bars)
	return bars, nil
}

func parseRow(rec []string) (model.Bar, error) {
	d, err := model.ParseDate(strings.TrimSpace(rec[0]))
	if err != nil {
		return model.Bar{}, err
	}
	var v [5]float64
	for i := range v {
		if v[i], err = strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64); err != nil {
			return model.Bar{}, fmt.Errorf("column %s: %w", header[i+1], err)
		}
	}
	return model.Bar{Date: d, Open: v[0], High: v[1], Low: v[2], Close: v[3], Volume: v[4]}, nil
}

// Save replaces the dataset of symbol with bars. The file is written to a
// temporary sibling and renamed over the previous one only once fully synced,
// so readers see either the old or the new content.
func (s *Store) Save(symbol string, bars []model.Bar) (err error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	path := s.Path(symbol)
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp dataset: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = encode(w, bars); err != nil {
		return fmt.Errorf("write dataset %s: %w", symbol, err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("flush dataset %s: %w", symbol, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync dataset %s: %w", symbol, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close dataset %s: %w", symbol, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace dataset %s: %w", symbol, err)
	}
	return nil
}

func encode(w io.Writer, bars []model.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, b := range bars {
		if err := cw.Write([]string{
			b.Date.Format(model.DateFormat), f(b.Open), f(b.High), f(b.Low), f(b.Close), f(b.Volume),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func sortBars(bars []model.Bar) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
}
