// Package api exposes the dataset and insight services over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/KaramelBytes/trendteller/internal/domain"
	"github.com/KaramelBytes/trendteller/internal/table"
)

// DatasetService is the dataset surface the API needs.
type DatasetService interface {
	Ingest(ctx context.Context, name, uploadedBy string, raw []byte) (*domain.Dataset, error)
	IngestFile(ctx context.Context, name, uploadedBy, filename string, raw []byte) (*domain.Dataset, error)
	IngestRecords(ctx context.Context, name, uploadedBy string, rows []table.Row) (*domain.Dataset, error)
	Get(ctx context.Context, id int64) (*domain.Dataset, error)
	List(ctx context.Context) ([]*domain.Dataset, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// InsightService is the insight surface the API needs.
type InsightService interface {
	Add(ctx context.Context, datasetID int64, summary string) (*domain.Insight, error)
	List(ctx context.Context, datasetID int64) ([]*domain.Insight, error)
}

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins    []string
	MaxUploadBytes int64
	// PlotsDir, when set, is served read-only under /plots/.
	PlotsDir string
}

const defaultMaxUpload = 32 << 20

type Server struct {
	datasets DatasetService
	insights InsightService
	log      *zap.Logger
	opt      Options
}

func NewServer(datasets DatasetService, insights InsightService, log *zap.Logger, opt Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = defaultMaxUpload
	}
	if len(opt.CORSOrigins) == 0 {
		opt.CORSOrigins = []string{"*"}
	}
	return &Server{datasets: datasets, insights: insights, log: log, opt: opt}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(s.log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opt.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/datasets", func(r chi.Router) {
		r.Post("/", s.createDataset)
		r.Get("/", s.listDatasets)
		r.Get("/{id}", s.getDataset)
		r.Delete("/{id}", s.deleteDataset)
		r.Get("/{id}/insights", s.listInsights)
	})
	r.Route("/insights", func(r chi.Router) {
		r.Post("/", s.createInsight)
		r.Get("/{id}", s.listInsights)
	})

	if s.opt.PlotsDir != "" {
		fs := http.StripPrefix("/plots/", http.FileServer(http.Dir(s.opt.PlotsDir)))
		r.Get("/plots/*", fs.ServeHTTP)
	}
	return r
}
