package domain

import (
	"time"

	"github.com/KaramelBytes/trendteller/internal/table"
)

// Dataset is a registered table. Columns is the schema inferred at ingestion.
type Dataset struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	UploadedBy string         `json:"uploaded_by"`
	Columns    []table.Column `json:"columns,omitempty"`
	Data       []table.Row    `json:"data"`
	UploadedAt time.Time      `json:"uploaded_at"`
}

// Table returns the dataset's rows as a typed table.
func (d *Dataset) Table() *table.Table {
	return table.WithColumns(d.Columns, d.Data)
}

// Insight is a summary plus histogram locations derived from a dataset. DatasetID
// is a weak reference: the dataset may since have been deleted.
type Insight struct {
	ID        int64    `json:"id"`
	DatasetID int64    `json:"dataset_id"`
	Summary   string   `json:"summary"`
	Plots     []string `json:"plots"`
}
