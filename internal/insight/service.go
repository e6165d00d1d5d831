// Package insight derives summaries and histograms from stored datasets.
package insight

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/KaramelBytes/trendteller/internal/analysis"
	"github.com/KaramelBytes/trendteller/internal/domain"
	"github.com/KaramelBytes/trendteller/internal/store"
	"github.com/KaramelBytes/trendteller/internal/table"
)

// DatasetSource resolves dataset ids. It returns *domain.NotFoundError for
// unknown ids.
type DatasetSource interface {
	Get(ctx context.Context, id int64) (*domain.Dataset, error)
}

// Plotter renders histograms for a table and returns their locations.
type Plotter interface {
	Plot(ctx context.Context, t *table.Table, insightID int64) []string
}

type Service struct {
	store    store.Store
	datasets DatasetSource
	plots    Plotter
	log      *zap.Logger
}

func NewService(s store.Store, datasets DatasetSource, plots Plotter, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: s, datasets: datasets, plots: plots, log: log}
}

// Add creates an insight for a dataset. An empty summary is generated from the
// data; any other summary is stored verbatim. Histograms are always rendered
// from the dataset as it is now. Unknown datasets fail with NotFound and
// create nothing.
func (s *Service) Add(ctx context.Context, datasetID int64, summary string) (*domain.Insight, error) {
	ds, err := s.datasets.Get(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	t := ds.Table()
	if summary == "" {
		summary = analysis.Summarize(t)
	}

	// Rendering and uploads run between Reserve and Put so no store lock or
	// connection is held while they do.
	id, err := s.store.Reserve(ctx, store.Insights)
	if err != nil {
		return nil, fmt.Errorf("reserve insight id: %w", err)
	}
	ins := &domain.Insight{ID: id, DatasetID: datasetID, Summary: summary}
	ins.Plots = s.plots.Plot(ctx, t, id)
	if ins.Plots == nil {
		ins.Plots = []string{}
	}
	body, err := json.Marshal(ins)
	if err != nil {
		return nil, fmt.Errorf("encode insight %d: %w", id, err)
	}
	if err := s.store.Put(ctx, store.Insights, id, body); err != nil {
		return nil, fmt.Errorf("store insight: %w", err)
	}
	s.log.Info("insight created",
		zap.Int64("insight_id", ins.ID),
		zap.Int64("dataset_id", datasetID),
		zap.Int("plots", len(ins.Plots)))
	return ins, nil
}

// Get returns a single insight or a *domain.NotFoundError.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Insight, error) {
	rec, ok, err := s.store.Get(ctx, store.Insights, id)
	if err != nil {
		return nil, fmt.Errorf("load insight %d: %w", id, err)
	}
	if !ok {
		return nil, domain.ErrNotFound("Insight not found")
	}
	return decode(rec)
}

// List returns the insights of a dataset in creation order. Unknown or deleted
// datasets simply have whatever insights were recorded for them.
func (s *Service) List(ctx context.Context, datasetID int64) ([]*domain.Insight, error) {
	recs, err := s.store.List(ctx, store.Insights)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	out := []*domain.Insight{}
	for _, r := range recs {
		ins, err := decode(r)
		if err != nil {
			return nil, err
		}
		if ins.DatasetID == datasetID {
			out = append(out, ins)
		}
	}
	return out, nil
}

// Delete removes an insight record. Plot artifacts stay where they are.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.store.Delete(ctx, store.Insights, id)
	if err != nil {
		return false, fmt.Errorf("delete insight %d: %w", id, err)
	}
	if ok {
		s.log.Info("insight deleted", zap.Int64("insight_id", id))
	}
	return ok, nil
}

func decode(r store.Record) (*domain.Insight, error) {
	var ins domain.Insight
	if err := json.Unmarshal(r.Body, &ins); err != nil {
		return nil, fmt.Errorf("decode insight %d: %w", r.ID, err)
	}
	ins.ID = r.ID
	if ins.Plots == nil {
		ins.Plots = []string{}
	}
	return &ins, nil
}
