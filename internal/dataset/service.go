// Package dataset ingests raw tables and manages dataset records.
package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/KaramelBytes/trendteller/internal/domain"
	"github.com/KaramelBytes/trendteller/internal/parser"
	"github.com/KaramelBytes/trendteller/internal/store"
	"github.com/KaramelBytes/trendteller/internal/table"
)

// Service creates, reads and deletes datasets. Deleting a dataset never
// touches insights derived from it.
type Service struct {
	store store.Store
	opt   parser.Options
	log   *zap.Logger
	now   func() time.Time
}

func NewService(s store.Store, opt parser.Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: s, opt: opt, log: log, now: time.Now}
}

// Ingest parses raw as a delimited table with a header row and stores it.
// Malformed input fails with *domain.IngestionError and stores nothing.
func (s *Service) Ingest(ctx context.Context, name, uploadedBy string, raw []byte) (*domain.Dataset, error) {
	t, err := parser.ParseCSV(raw, s.opt)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, name, uploadedBy, t)
}

// IngestFile is Ingest with the decoder chosen from filename and content, so
// TSV and JSON record files are accepted too.
func (s *Service) IngestFile(ctx context.Context, name, uploadedBy, filename string, raw []byte) (*domain.Dataset, error) {
	t, err := parser.Parse(filename, raw, s.opt)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, name, uploadedBy, t)
}

// IngestRecords stores already-decoded row records.
func (s *Service) IngestRecords(ctx context.Context, name, uploadedBy string, rows []table.Row) (*domain.Dataset, error) {
	return s.create(ctx, name, uploadedBy, table.FromRecords(rows))
}

func (s *Service) create(ctx context.Context, name, uploadedBy string, t *table.Table) (*domain.Dataset, error) {
	d := &domain.Dataset{
		Name:       name,
		UploadedBy: uploadedBy,
		Columns:    t.Columns,
		Data:       t.Rows,
		UploadedAt: s.now().UTC(),
	}
	if d.Data == nil {
		d.Data = []table.Row{}
	}
	_, err := s.store.Create(ctx, store.Datasets, func(id int64) ([]byte, error) {
		d.ID = id
		b, err := json.Marshal(d)
		if err != nil {
			return nil, domain.ErrIngestion(err, "rows cannot be encoded")
		}
		return b, nil
	})
	var ierr *domain.IngestionError
	if errors.As(err, &ierr) {
		return nil, ierr
	}
	if err != nil {
		return nil, fmt.Errorf("store dataset: %w", err)
	}
	s.log.Info("dataset created",
		zap.Int64("dataset_id", d.ID),
		zap.String("name", d.Name),
		zap.Int("rows", len(d.Data)),
		zap.Int("columns", len(d.Columns)))
	return d, nil
}

// Get returns the dataset or a *domain.NotFoundError.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Dataset, error) {
	rec, ok, err := s.store.Get(ctx, store.Datasets, id)
	if err != nil {
		return nil, fmt.Errorf("load dataset %d: %w", id, err)
	}
	if !ok {
		return nil, domain.ErrNotFound("Dataset not found")
	}
	return decode(rec)
}

// List returns all datasets in creation order.
func (s *Service) List(ctx context.Context) ([]*domain.Dataset, error) {
	recs, err := s.store.List(ctx, store.Datasets)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	out := make([]*domain.Dataset, 0, len(recs))
	for _, r := range recs {
		d, err := decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Delete removes a dataset and reports whether it existed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.store.Delete(ctx, store.Datasets, id)
	if err != nil {
		return false, fmt.Errorf("delete dataset %d: %w", id, err)
	}
	if ok {
		s.log.Info("dataset deleted", zap.Int64("dataset_id", id))
	}
	return ok, nil
}

func decode(r store.Record) (*domain.Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	var d domain.Dataset
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode dataset %d: %w", r.ID, err)
	}
	d.ID = r.ID
	d.Data = table.NormalizeRows(d.Data)
	return &d, nil
}
