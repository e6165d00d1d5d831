package api

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/KaramelBytes/trendteller/internal/domain"
	"github.com/KaramelBytes/trendteller/internal/table"
)

type datasetRequest struct {
	Name       string      `json:"name"`
	UploadedBy string      `json:"uploaded_by"`
	Data       []table.Row `json:"data"`
	CSV        string      `json:"csv"`
}

type datasetCreated struct {
	Status     string    `json:"status"`
	DatasetID  int64     `json:"dataset_id"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type datasetDeleted struct {
	Status    string `json:"status"`
	DatasetID int64  `json:"dataset_id"`
}

type insightRequest struct {
	DatasetID *int64 `json:"dataset_id"`
	Summary   string `json:"summary"`
}

type insightCreated struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	ID      int64    `json:"id"`
	Summary string   `json:"summary"`
	Plots   []string `json:"plots"`
}

type insightView struct {
	ID      int64    `json:"id"`
	Summary string   `json:"summary"`
	Plots   []string `json:"plots"`
}

// createDataset accepts multipart uploads (name, uploaded_by, file) or a JSON
// body carrying either row records or CSV text.
func (s *Server) createDataset(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opt.MaxUploadBytes))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var d *domain.Dataset
	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		d, err = s.createFromMultipart(r, body, params["boundary"])
	} else {
		d, err = s.createFromJSON(r, body)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, datasetCreated{Status: "success", DatasetID: d.ID, UploadedAt: d.UploadedAt})
}

func (s *Server) createFromMultipart(r *http.Request, body []byte, boundary string) (*domain.Dataset, error) {
	if boundary == "" {
		return nil, badRequest("multipart body without boundary")
	}
	form, err := multipart.NewReader(bytes.NewReader(body), boundary).ReadForm(s.opt.MaxUploadBytes)
	if err != nil {
		return nil, badRequest("invalid multipart body: " + err.Error())
	}
	defer form.RemoveAll()

	files := form.File["file"]
	if len(files) == 0 {
		return nil, badRequest("missing file field")
	}
	f, err := files[0].Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return s.datasets.IngestFile(r.Context(), formValue(form, "name"), formValue(form, "uploaded_by"), files[0].Filename, raw)
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (s *Server) createFromJSON(r *http.Request, body []byte) (*domain.Dataset, error) {
	var req datasetRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return nil, badRequest("invalid JSON body: " + err.Error())
	}
	switch {
	case req.Data != nil:
		return s.datasets.IngestRecords(r.Context(), req.Name, req.UploadedBy, req.Data)
	case req.CSV != "":
		return s.datasets.Ingest(r.Context(), req.Name, req.UploadedBy, []byte(req.CSV))
	default:
		return nil, badRequest("body needs data or csv")
	}
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	all, err := s.datasets.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.datasets.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deleteDataset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok, err := s.datasets.Delete(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, domain.ErrNotFound("Dataset not found"))
		return
	}
	writeJSON(w, http.StatusOK, datasetDeleted{Status: "success", DatasetID: id})
}

func (s *Server) createInsight(w http.ResponseWriter, r *http.Request) {
	var req insightRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opt.MaxUploadBytes))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, badRequest("invalid JSON body: "+err.Error()))
		return
	}
	if req.DatasetID == nil {
		s.writeError(w, r, badRequest("dataset_id is required"))
		return
	}
	ins, err := s.insights.Add(r.Context(), *req.DatasetID, req.Summary)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, insightCreated{
		Status:  "success",
		Message: "Insight added",
		ID:      ins.ID,
		Summary: ins.Summary,
		Plots:   ins.Plots,
	})
}

func (s *Server) listInsights(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.insights.List(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]insightView, 0, len(list))
	for _, ins := range list {
		out = append(out, insightView{ID: ins.ID, Summary: ins.Summary, Plots: ins.Plots})
	}
	writeJSON(w, http.StatusOK, out)
}

func pathID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid id " + strconv.Quote(raw))
	}
	return id, nil
}
