package parse

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// textExtensions are read directly from disk without any model call.
var textExtensions = []string{
	".txt",
	".py", ".java", ".js", ".html", ".css", ".c", ".cpp", ".h", ".hpp",
	".cs", ".php", ".rb", ".go", ".rs", ".sql", ".ts", ".swift", ".kt",
	".csv", ".tsv", ".json", ".xml", ".yaml", ".yml",
}

// IsTextExtension reports whether the extension decodes as plain text.
func IsTextExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range textExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

type textParser struct{}

func (p *textParser) Name() string { return "TextDocParser" }

func (p *textParser) Parse(_ context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	switch ext {
	case ".csv":
		return renderDelimited(DecodeText(raw), ',')
	case ".tsv":
		return renderDelimited(DecodeText(raw), '\t')
	default:
		return DecodeText(raw), nil
	}
}

// DecodeText interprets bytes as UTF-8, substituting the replacement
// rune for invalid sequences instead of failing.
func DecodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	var sb strings.Builder
	sb.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune('�')
		} else {
			sb.WriteRune(r)
		}
		raw = raw[size:]
	}
	return sb.String()
}

// renderDelimited formats CSV/TSV content as an aligned pipe table
// with a separator row under the header.
func renderDelimited(text string, delimiter rune) (string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read delimited content: %w", err)
	}
	if len(rows) == 0 {
		return "Empty file", nil
	}

	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	widths := make([]int, cols)
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var out []string
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = pad(cell, widths[j])
		}
		out = append(out, "| "+strings.Join(cells, " | ")+" |")
		if i == 0 {
			seps := make([]string, cols)
			for j, w := range widths {
				seps[j] = strings.Repeat("-", w+2)
			}
			out = append(out, "|"+strings.Join(seps, "|")+"|")
		}
	}
	return strings.Join(out, "\n"), nil
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
