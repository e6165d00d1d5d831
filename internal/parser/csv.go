package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/KaramelBytes/trendteller/internal/domain"
	"github.com/KaramelBytes/trendteller/internal/table"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (csvParser) Parse(content []byte, opt Options) (*table.Table, error) {
	return ParseCSV(content, opt)
}

// ParseCSV decodes a delimited table with a header row. Structural problems are
// reported as *domain.IngestionError.
func ParseCSV(content []byte, opt Options) (*table.Table, error) {
	text, err := decodeText(content, opt.Encoding)
	if err != nil {
		return nil, err
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(text)
	}
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.ErrIngestion(nil, "no columns to parse from input")
		}
		return nil, domain.ErrIngestion(err, "read header")
	}
	names := headerNames(header)

	var rows []table.Row
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, domain.ErrIngestion(err, "read row %d", len(rows)+1)
		}
		if len(rec) > len(names) {
			line, _ := r.FieldPos(0)
			return nil, domain.ErrIngestion(nil, "expected %d fields in line %d, saw %d", len(names), line, len(rec))
		}
		row := make(table.Row, len(names))
		for i, name := range names {
			var v any
			// short rows are padded with nulls
			if i < len(rec) {
				v = ParseCell(rec[i], opt)
			}
			row[name] = v
		}
		rows = append(rows, row)
	}
	return table.New(names, rows), nil
}

var naTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "<NA>": {},
}

// ParseCell infers a scalar from a raw cell: null tokens, integers, floats,
// booleans, then text.
func ParseCell(raw string, opt Options) any {
	s := strings.TrimSpace(raw)
	if _, ok := naTokens[s]; ok {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, ok := parseNumeric(s, opt); ok {
		return table.Normalize(f)
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := s
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) {
		// "inf" and "Infinity" stay text: row records only carry finite numbers.
		return 0, false
	}
	return f, true
}

func headerNames(header []string) []string {
	names := make([]string, len(header))
	taken := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := taken[name]; dup {
			base := name
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if _, exists := taken[name]; !exists {
					break
				}
			}
			taken[base] = n
		}
		taken[name] = 0
		names[i] = name
	}
	return names
}

func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	best, bestCount := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if c := strings.Count(line, string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func decodeText(b []byte, encoding string) (string, error) {
	if bytes.HasPrefix(b, []byte{0xFF, 0xFE}) || bytes.HasPrefix(b, []byte{0xFE, 0xFF}) {
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
		if err != nil {
			return "", domain.ErrIngestion(err, "decode utf-16 input")
		}
		return string(out), nil
	}
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		b = bytes.TrimPrefix(b, utf8BOM)
		if !utf8.Valid(b) {
			return "", domain.ErrIngestion(nil, "input is not valid UTF-8")
		}
		return string(b), nil
	case "latin1", "latin-1", "iso-8859-1":
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
		if err != nil {
			return "", domain.ErrIngestion(err, "decode latin1 input")
		}
		return string(out), nil
	case "windows-1252", "cp1252":
		out, err := charmap.Windows1252.NewDecoder().Bytes(b)
		if err != nil {
			return "", domain.ErrIngestion(err, "decode windows-1252 input")
		}
		return string(out), nil
	default:
		return "", domain.ErrIngestion(ErrUnsupported, "encoding %q", encoding)
	}
}
