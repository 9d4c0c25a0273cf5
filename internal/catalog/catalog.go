// Package catalog holds the static ticker symbol to display title table.
//
// A Catalog is built once at startup and never mutated afterwards, so it can
// be shared by any number of goroutines without locking.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"
)

// Entry is one catalog record.
type Entry struct {
	Symbol string `json:"ticker"`
	Title  string `json:"title"`
}

// Catalog maps a ticker symbol to its entry.
type Catalog struct {
	entries map[string]Entry
}

// LoadError is returned when the catalog source cannot be read or parsed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load ticker catalog %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// record mirrors a raw source record. Extra fields such as cik_str are ignored.
type record struct {
	Ticker *string `json:"ticker"`
	Title  *string `json:"title"`
}

// Empty returns a catalog with no entries. Normalizing against it is a
// pass-through.
func Empty() *Catalog {
	return &Catalog{entries: map[string]Entry{}}
}

// LoadFile reads the catalog from a JSON file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer f.Close()

	c, err := load(f)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	return c, nil
}

// Load parses a catalog from r. The source is either a JSON object whose
// values are records (the SEC company_tickers.json shape, keyed by index) or
// a JSON array of records. Each record needs a non-empty ticker and title.
// Symbols are stored upper-cased. Runs of whitespace in titles collapse to a
// single space, so a substituted title survives re-normalization unchanged.
//
// When two records share a symbol the later one in source order wins. For
// the object shape, source order is ascending numeric key order.
func Load(r io.Reader) (*Catalog, error) {
	c, err := load(r)
	if err != nil {
		return nil, &LoadError{Source: "reader", Err: err}
	}
	return c, nil
}

func load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty source")
	}

	var records []record
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode record list: %w", err)
		}
	case '{':
		var keyed map[string]record
		if err := json.Unmarshal(data, &keyed); err != nil {
			return nil, fmt.Errorf("decode record map: %w", err)
		}
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
		for _, k := range keys {
			records = append(records, keyed[k])
		}
	default:
		return nil, fmt.Errorf("expected JSON object or array, got %q", data[0])
	}

	entries := make(map[string]Entry, len(records))
	for i, rec := range records {
		if rec.Ticker == nil || strings.TrimSpace(*rec.Ticker) == "" {
			return nil, fmt.Errorf("record %d: missing ticker", i)
		}
		sym := strings.ToUpper(strings.TrimSpace(*rec.Ticker))
		if strings.ContainsFunc(sym, unicode.IsSpace) {
			return nil, fmt.Errorf("record %d (%s): ticker contains whitespace", i, sym)
		}
		if rec.Title == nil {
			return nil, fmt.Errorf("record %d (%s): missing title", i, sym)
		}
		title := strings.Join(strings.Fields(*rec.Title), " ")
		if title == "" {
			return nil, fmt.Errorf("record %d (%s): empty title", i, sym)
		}
		entries[sym] = Entry{Symbol: sym, Title: title}
	}
	return &Catalog{entries: entries}, nil
}

// lessKey orders numeric keys numerically and everything else lexically.
func lessKey(a, b string) bool {
	if len(a) != len(b) && isDigits(a) && isDigits(b) {
		return len(a) < len(b)
	}
	return a < b
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Title returns the display title for symbol. Lookup is case-sensitive.
func (c *Catalog) Title(symbol string) (string, bool) {
	e, ok := c.entries[symbol]
	return e.Title, ok
}

// Entry returns the full record for symbol.
func (c *Catalog) Entry(symbol string) (Entry, bool) {
	e, ok := c.entries[symbol]
	return e, ok
}

// Len returns the number of symbols.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Symbols returns all symbols in ascending order.
func (c *Catalog) Symbols() []string {
	out := make([]string, 0, len(c.entries))
	for s := range c.entries {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
