package parser

import (
	"bytes"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/KaramelBytes/trendteller/internal/domain"
	"github.com/KaramelBytes/trendteller/internal/table"
)

// jsonParser decodes an array of row records, the shape datasets are persisted in.
type jsonParser struct{}

func (jsonParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".json")
}

func (jsonParser) Parse(content []byte, _ Options) (*table.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var rows []table.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, domain.ErrIngestion(err, "decode json records")
	}
	return table.FromRecords(rows), nil
}
