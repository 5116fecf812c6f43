// Package notebook models a Jupyter notebook as far as narrate needs it: an
// ordered sequence of opaque cells plus every other top-level field, carried
// through untouched.
package notebook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// CellCode marks executable cells.
	CellCode = "code"
	// CellMarkdown marks narrative cells.
	CellMarkdown = "markdown"
	// CellRaw marks raw passthrough cells.
	CellRaw = "raw"

	cellsKey = "cells"
)

// ErrUndecodable indicates the document is not a notebook-shaped JSON object.
var ErrUndecodable = errors.New("notebook: undecodable document")

// Cell is one entry of the notebook's cell sequence. Its JSON body is kept as
// read so existing cells round-trip with their key order intact.
type Cell struct {
	Type string
	ID   string
	raw  json.RawMessage
}

// MarshalJSON returns the cell body verbatim.
func (c Cell) MarshalJSON() ([]byte, error) {
	if len(c.raw) == 0 {
		return nil, fmt.Errorf("notebook: cell has no body")
	}
	return c.raw, nil
}

// UnmarshalJSON keeps the body and lifts the type discriminator and id.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"cell_type"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	c.Type = head.Type
	c.ID = head.ID
	c.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Notebook holds the cell sequence and the remaining top-level fields.
type Notebook struct {
	Cells  []Cell
	Format int
	Minor  int
	fields map[string]json.RawMessage
}

// Decode parses a notebook document after checking its cell-sequence shape.
func Decode(data []byte) (*Notebook, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrUndecodable)
	}
	if err := checkStructure(data); err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	nb := &Notebook{fields: fields}
	if err := json.Unmarshal(fields[cellsKey], &nb.Cells); err != nil {
		return nil, fmt.Errorf("%w: cells: %v", ErrUndecodable, err)
	}
	delete(nb.fields, cellsKey)
	nb.Format = intField(fields, "nbformat")
	nb.Minor = intField(fields, "nbformat_minor")
	return nb, nil
}

// Encode renders the notebook with sorted top-level keys, the given indent
// and a trailing newline. HTML characters are left unescaped so markdown stays
// readable in diffs.
func Encode(nb *Notebook, indent string) ([]byte, error) {
	if nb == nil {
		return nil, fmt.Errorf("notebook: nil notebook")
	}
	out := make(map[string]json.RawMessage, len(nb.fields)+1)
	for key, value := range nb.fields {
		out[key] = value
	}
	cells := nb.Cells
	if cells == nil {
		cells = []Cell{}
	}
	encodedCells, err := marshal(cells)
	if err != nil {
		return nil, fmt.Errorf("notebook: encode cells: %w", err)
	}
	out[cellsKey] = encodedCells

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("notebook: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// WithCells returns a copy of nb that carries cells instead of nb.Cells.
func (nb *Notebook) WithCells(cells []Cell) *Notebook {
	clone := *nb
	clone.Cells = cells
	return &clone
}

// NeedsCellIDs reports whether the notebook format (4.5+) requires cell ids.
func (nb *Notebook) NeedsCellIDs() bool {
	return nb.Format > 4 || (nb.Format == 4 && nb.Minor >= 5)
}

// Fields lists the top-level keys other than cells, sorted.
func (nb *Notebook) Fields() []string {
	keys := make([]string, 0, len(nb.fields))
	for key := range nb.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Counts tallies cells by type.
type Counts struct {
	Code     int
	Markdown int
	Raw      int
	Other    int
	Total    int
}

// NonMarkdown returns the number of content-bearing cells.
func (c Counts) NonMarkdown() int {
	return c.Total - c.Markdown
}

// Count tallies the given cells.
func Count(cells []Cell) Counts {
	var counts Counts
	for _, cell := range cells {
		switch strings.TrimSpace(cell.Type) {
		case CellCode:
			counts.Code++
		case CellMarkdown:
			counts.Markdown++
		case CellRaw:
			counts.Raw++
		default:
			counts.Other++
		}
		counts.Total++
	}
	return counts
}

// marshal encodes v without HTML escaping so markdown such as "<br>" or "a & b"
// survives verbatim.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func intField(fields map[string]json.RawMessage, key string) int {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	var value int
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0
	}
	return value
}
