package notebook

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zeebo/blake3"

	"github.com/kingrea/narrate/internal/insertion"
)

type markdownCell struct {
	Type     string         `json:"cell_type"`
	ID       string         `json:"id,omitempty"`
	Metadata map[string]any `json:"metadata"`
	Source   []string       `json:"source"`
}

// NewMarkdownCell wraps text into a markdown cell. The text is trimmed and
// split into lines, each terminated by "\n". Blank or non-UTF-8 text is
// rejected with insertion.ErrMalformedPayload. id is written only when set.
func NewMarkdownCell(text, id string) (Cell, error) {
	lines, err := SourceLines(text)
	if err != nil {
		return Cell{}, err
	}
	body, err := marshal(markdownCell{
		Type:     CellMarkdown,
		ID:       id,
		Metadata: map[string]any{},
		Source:   lines,
	})
	if err != nil {
		return Cell{}, fmt.Errorf("notebook: encode markdown cell: %w", err)
	}
	return Cell{Type: CellMarkdown, ID: id, raw: body}, nil
}

// SourceLines converts text into notebook source lines.
func SourceLines(text string) ([]string, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", insertion.ErrMalformedPayload)
	}
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: text is empty", insertion.ErrMalformedPayload)
	}
	parts := strings.Split(trimmed, "\n")
	lines := make([]string, len(parts))
	for i, part := range parts {
		lines[i] = part + "\n"
	}
	return lines, nil
}

// CellID derives a stable 8-character id for an inserted cell so that
// re-deriving the same plan against the same notebook yields identical output.
func CellID(index, position int, text string) string {
	h := blake3.New()
	fmt.Fprintf(h, "%d\x00%d\x00", index, position)
	_, _ = h.Write([]byte(text))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:4])
}

// Digest returns the BLAKE3-256 hex digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
