// Package plot renders one histogram per numeric column of a table and stores
// the images under names derived from the insight id.
package plot

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/KaramelBytes/trendteller/internal/domain"
	"github.com/KaramelBytes/trendteller/internal/table"
)

// Bins is the fixed histogram bin count.
const Bins = 10

// Renderer draws a histogram image for a column's values.
type Renderer interface {
	Histogram(column string, values []float64, bins int) ([]byte, error)
}

// Result is the outcome of plotting a single column. Err is a
// *domain.RenderError when the column could not be plotted.
type Result struct {
	Column   string
	Location string
	Err      error
}

// Generator renders histograms and hands them to a Sink.
type Generator struct {
	renderer Renderer
	sink     Sink
	log      *zap.Logger
}

// NewGenerator creates a Generator. A nil renderer selects the gonum renderer.
func NewGenerator(r Renderer, s Sink, log *zap.Logger) *Generator {
	if r == nil {
		r = GonumRenderer{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{renderer: r, sink: s, log: log}
}

// Render plots every numeric column of t in native order. A failing column
// yields a Result with Err set and never stops the remaining columns.
func (g *Generator) Render(ctx context.Context, t *table.Table, insightID int64) []Result {
	cols := t.NumericColumns()
	out := make([]Result, 0, len(cols))
	for _, c := range cols {
		loc, err := g.renderColumn(ctx, t, c.Name, insightID)
		if err != nil {
			err = &domain.RenderError{Column: c.Name, Err: err}
		}
		out = append(out, Result{Column: c.Name, Location: loc, Err: err})
	}
	return out
}

// Plot renders t and returns the locations of the histograms that succeeded.
// Failures are logged.
func (g *Generator) Plot(ctx context.Context, t *table.Table, insightID int64) []string {
	return Locations(g.Render(ctx, t, insightID), func(r Result) {
		g.log.Warn("plot render failed",
			zap.Int64("insight_id", insightID),
			zap.String("column", r.Column),
			zap.Error(r.Err))
	})
}

func (g *Generator) renderColumn(ctx context.Context, t *table.Table, column string, insightID int64) (loc string, err error) {
	defer func() {
		if r := recover(); r != nil {
			loc, err = "", fmt.Errorf("renderer panic: %v", r)
		}
	}()
	img, err := g.renderer.Histogram(column, t.Floats(column), Bins)
	if err != nil {
		return "", err
	}
	return g.sink.Put(ctx, FileName(insightID, column), img)
}

// Locations keeps successful locations in order and passes failures to onErr.
func Locations(results []Result, onErr func(Result)) []string {
	locs := make([]string, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			if onErr != nil {
				onErr(r)
			}
			continue
		}
		locs = append(locs, r.Location)
	}
	return locs
}

// FileName is the deterministic artifact name for an insight's column histogram.
func FileName(insightID int64, column string) string {
	return fmt.Sprintf("insight_%d_%s_hist.png", insightID, safeName(column))
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, s)
}
