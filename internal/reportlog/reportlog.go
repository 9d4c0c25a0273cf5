// Package reportlog journals screening reports as JSON lines, one file per
// day, and exports single reports as CSV.
package reportlog

import (
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"signal-screener/internal/types"
)

// Journal appends reports under dir.
type Journal struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Journal {
	if dir == "" {
		dir = "logs"
	}
	return &Journal{dir: dir}
}

// Dir returns the journal directory.
func (j *Journal) Dir() string { return j.dir }

func (j *Journal) dailyFilepath(t time.Time) string {
	return filepath.Join(j.dir, "reports", t.UTC().Format("2006-01-02")+".jsonl")
}

// Append writes r as one line of the file for the day it was generated.
func (j *Journal) Append(r *types.Report) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	p := j.dailyFilepath(r.GeneratedAt)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", r.RunID, err)
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// ReadDay returns the reports journaled on day, oldest first.
func (j *Journal) ReadDay(day time.Time) ([]types.Report, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	b, err := os.ReadFile(j.dailyFilepath(day))
	if err != nil {
		return nil, err
	}

	var out []types.Report
	dec := json.NewDecoder(bytes.NewReader(b))
	for dec.More() {
		var r types.Report
		if err := dec.Decode(&r); err != nil {
			return out, fmt.Errorf("decode journal line %d: %w", len(out)+1, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// WriteCSV writes one row per result in request order.
func WriteCSV(w io.Writer, r *types.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ticker", "status", "percent_change", "start_price", "end_price", "message"}); err != nil {
		return err
	}
	for _, res := range r.Ordered() {
		row := []string{
			res.Ticker,
			string(res.Status),
			formatOptional(res.PercentChange),
			formatOptional(res.StartPrice),
			formatOptional(res.EndPrice),
			res.Message,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// CompressOlder gzips journal files last modified more than retentionDays
// ago. A non-positive retention keeps everything uncompressed.
func (j *Journal) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		return compress(p)
	})
}

func compress(p string) error {
	gz := p + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return os.Remove(p)
	}

	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, copyErr := io.Copy(gw, in)
	closeErr := gw.Close()
	if err := out.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(gz)
		if copyErr != nil {
			return copyErr
		}
		return closeErr
	}
	in.Close()
	return os.Remove(p)
}
