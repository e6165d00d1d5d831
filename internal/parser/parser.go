package parser

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/trendteller/internal/table"
)

// Parser decodes raw upload bytes into a table.
type Parser interface {
	CanParse(filename string) bool
	Parse(content []byte, opt Options) (*table.Table, error)
}

// Options controls how raw bytes are decoded.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the header line among ',', ';', '\t'.
	Delimiter rune
	// Encoding of non-UTF-8 input: "latin1" or "windows-1252". Empty means UTF-8;
	// UTF-16 input with a byte order mark is always accepted.
	Encoding string
	// Numeric parsing locale. Zero values mean '.' decimals and no grouping.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// Parse selects a parser based on filename and decodes content. Unknown or
// empty names fall back to CSV unless the content looks like a JSON array.
func Parse(filename string, content []byte, opt Options) (*table.Table, error) {
	if opt.Delimiter == 0 && strings.HasSuffix(strings.ToLower(filename), ".tsv") {
		opt.Delimiter = '\t'
	}
	for _, p := range registry {
		if filename != "" && p.CanParse(filename) {
			return p.Parse(content, opt)
		}
	}
	if bytes.HasPrefix(bytes.TrimSpace(content), []byte("[")) {
		return jsonParser{}.Parse(content, opt)
	}
	return csvParser{}.Parse(content, opt)
}

// ParseFile reads a file from disk and decodes it with Parse.
func ParseFile(path string, opt Options) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Parse(filepath.Base(path), data, opt)
}

func init() {
	Register(jsonParser{})
	Register(csvParser{})
}

// ErrUnsupported indicates an encoding or format is not supported.
var ErrUnsupported = errors.New("unsupported input format")
