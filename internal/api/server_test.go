package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KaramelBytes/trendteller/internal/dataset"
	"github.com/KaramelBytes/trendteller/internal/insight"
	"github.com/KaramelBytes/trendteller/internal/parser"
	"github.com/KaramelBytes/trendteller/internal/plot"
	"github.com/KaramelBytes/trendteller/internal/store"
	"github.com/KaramelBytes/trendteller/internal/table"
)

type stubRenderer struct{}

func (stubRenderer) Histogram(column string, _ []float64, _ int) ([]byte, error) {
	return []byte("png:" + column), nil
}

func newTestServer(t *testing.T, opt Options) (*httptest.Server, string) {
	t.Helper()
	st := store.NewMemory()
	dir := t.TempDir()
	ds := dataset.NewService(st, parser.Options{}, nil)
	gen := plot.NewGenerator(stubRenderer{}, plot.NewDirSink(dir), zap.NewNop())
	ins := insight.NewService(st, ds, gen, nil)
	opt.PlotsDir = dir
	srv := httptest.NewServer(NewServer(ds, ins, zap.NewNop(), opt).Routes())
	t.Cleanup(srv.Close)
	return srv, dir
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func uploadCSV(t *testing.T, url, name, by, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", name))
	require.NoError(t, mw.WriteField("uploaded_by", by))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/datasets/", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestDatasetLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp := uploadCSV(t, srv.URL, "mentions", "ana", "m.csv", "Category,Mentions\nA,5\nB,3\n")
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "success", created["status"])
	assert.EqualValues(t, 1, created["dataset_id"])
	assert.NotEmpty(t, created["uploaded_at"])

	resp2, got := doJSON(t, http.MethodGet, srv.URL+"/datasets/1", nil)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, "mentions", got["name"])
	assert.Equal(t, "ana", got["uploaded_by"])
	assert.Len(t, got["data"], 2)

	listResp, err := http.Get(srv.URL + "/datasets/")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var list []map[string]any
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	assert.Len(t, list, 1)

	resp3, del := doJSON(t, http.MethodDelete, srv.URL+"/datasets/1", nil)
	require.Equal(t, http.StatusOK, resp3.StatusCode)
	assert.Equal(t, "success", del["status"])

	resp4, nf := doJSON(t, http.MethodDelete, srv.URL+"/datasets/1", nil)
	assert.Equal(t, http.StatusNotFound, resp4.StatusCode)
	assert.Equal(t, "Dataset not found", nf["detail"])
}

func TestCreateDatasetFromJSONRecords(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/datasets/", map[string]any{
		"name":        "records",
		"uploaded_by": "bo",
		"data":        []table.Row{{"Category": "A", "Mentions": 5}, {"Category": "B", "Mentions": 3}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.EqualValues(t, 1, body["dataset_id"])
}

func TestCreateDatasetErrors(t *testing.T) {
	srv, _ := newTestServer(t, Options{MaxUploadBytes: 1024})

	resp := uploadCSV(t, srv.URL, "bad", "u", "bad.csv", "a,b\n1,2,3\n")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	r2, _ := doJSON(t, http.MethodPost, srv.URL+"/datasets/", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, r2.StatusCode)

	r3, body := doJSON(t, http.MethodPost, srv.URL+"/datasets/", map[string]any{
		"name": "big", "uploaded_by": "u", "csv": strings.Repeat("a,b\n", 400),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, r3.StatusCode)
	assert.Equal(t, "upload exceeds size limit", body["detail"])
}

func TestUploadWithInfinityCells(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp := uploadCSV(t, srv.URL, "inf", "u", "inf.csv", "x\ninf\n1\n")
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	r2, got := doJSON(t, http.MethodGet, srv.URL+"/datasets/1", nil)
	require.Equal(t, http.StatusOK, r2.StatusCode)
	rows, ok := got["data"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, "inf", rows[0].(map[string]any)["x"])

	r3, ins := doJSON(t, http.MethodPost, srv.URL+"/insights/", map[string]any{"dataset_id": 1})
	require.Equal(t, http.StatusCreated, r3.StatusCode)
	assert.Contains(t, ins["summary"], " - x: text, non-null: 2")
}

func TestCORSDoesNotAllowCredentials(t *testing.T) {
	srv, _ := newTestServer(t, Options{CORSOrigins: []string{"*"}})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestInsightFlow(t *testing.T) {
	srv, dir := newTestServer(t, Options{})
	resp := uploadCSV(t, srv.URL, "mentions", "ana", "m.csv", "Category,Mentions\nA,5\nB,3\n")
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	r1, created := doJSON(t, http.MethodPost, srv.URL+"/insights/", map[string]any{"dataset_id": 1})
	require.Equal(t, http.StatusCreated, r1.StatusCode)
	assert.Equal(t, "Insight added", created["message"])
	assert.EqualValues(t, 1, created["id"])
	assert.Contains(t, created["summary"], "Rows: 2, Columns: 2.")
	plots := created["plots"].([]any)
	require.Len(t, plots, 1)
	assert.Equal(t, filepath.Join(dir, "insight_1_Mentions_hist.png"), plots[0])

	r2, custom := doJSON(t, http.MethodPost, srv.URL+"/insights/", map[string]any{"dataset_id": 1, "summary": "custom text"})
	require.Equal(t, http.StatusCreated, r2.StatusCode)
	assert.Equal(t, "custom text", custom["summary"])

	for _, path := range []string{"/insights/1", "/datasets/1/insights"} {
		lr, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		var list []map[string]any
		require.NoError(t, json.NewDecoder(lr.Body).Decode(&list))
		lr.Body.Close()
		require.Len(t, list, 2, path)
		assert.EqualValues(t, 1, list[0]["id"])
		assert.EqualValues(t, 2, list[1]["id"])
	}

	pr, err := http.Get(srv.URL + "/plots/insight_1_Mentions_hist.png")
	require.NoError(t, err)
	defer pr.Body.Close()
	assert.Equal(t, http.StatusOK, pr.StatusCode)

	r3, nf := doJSON(t, http.MethodPost, srv.URL+"/insights/", map[string]any{"dataset_id": 99})
	assert.Equal(t, http.StatusNotFound, r3.StatusCode)
	assert.Equal(t, "Dataset not found", nf["detail"])

	r4, _ := doJSON(t, http.MethodPost, srv.URL+"/insights/", map[string]any{"summary": "x"})
	assert.Equal(t, http.StatusBadRequest, r4.StatusCode)
}

func TestOrphanedInsightsStayListed(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	resp := uploadCSV(t, srv.URL, "m", "u", "m.csv", "Mentions\n5\n3\n")
	resp.Body.Close()
	for i := 0; i < 2; i++ {
		r, _ := doJSON(t, http.MethodPost, srv.URL+"/insights/", map[string]any{"dataset_id": 1})
		require.Equal(t, http.StatusCreated, r.StatusCode)
	}
	r, _ := doJSON(t, http.MethodDelete, srv.URL+"/datasets/1", nil)
	require.Equal(t, http.StatusOK, r.StatusCode)

	lr, err := http.Get(srv.URL + "/insights/1")
	require.NoError(t, err)
	defer lr.Body.Close()
	var list []map[string]any
	require.NoError(t, json.NewDecoder(lr.Body).Decode(&list))
	assert.Len(t, list, 2)

	r2, _ := doJSON(t, http.MethodPost, srv.URL+"/insights/", map[string]any{"dataset_id": 1})
	assert.Equal(t, http.StatusNotFound, r2.StatusCode)
}

func TestInvalidIDAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	r, body := doJSON(t, http.MethodGet, srv.URL+"/datasets/abc", nil)
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
	assert.Contains(t, body["detail"], "invalid id")

	h, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer h.Body.Close()
	assert.Equal(t, http.StatusOK, h.StatusCode)
}

func TestInternalErrorsAreMasked(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Close())
	ds := dataset.NewService(st, parser.Options{}, nil)
	srv := httptest.NewServer(NewServer(ds, insight.NewService(st, ds, plot.NewGenerator(stubRenderer{}, plot.NewDirSink(t.TempDir()), nil), nil), nil, Options{}).Routes())
	defer srv.Close()

	r, body := doJSON(t, http.MethodGet, srv.URL+"/datasets/1", nil)
	assert.Equal(t, http.StatusInternalServerError, r.StatusCode)
	assert.Equal(t, "internal server error", body["detail"])
}
