package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/async"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/entity"
	"github.com/joseph-ayodele/caselaw-ingest/internal/pipeline"
)

type fakeGazettes struct {
	gotName string
	gotType constants.GazetteType
	gotBody string
	err     error
}

func (f *fakeGazettes) Import(_ context.Context, file io.Reader, filename string, t constants.GazetteType) (pipeline.GazetteImportResult, error) {
	b, _ := io.ReadAll(file)
	f.gotName, f.gotType, f.gotBody = filename, t, string(b)
	if f.err != nil {
		return pipeline.GazetteImportResult{}, f.err
	}
	return pipeline.GazetteImportResult{Success: true, ImportedCount: 2, SkippedCount: 1, TotalRows: 3, Errors: []string{"Row 2: no person name"}, GazetteType: t}, nil
}

type fakeCauseLists struct {
	gotPath   string
	existed   bool
	err       error
	summaries int
}

func (f *fakeCauseLists) Import(_ context.Context, path string) (pipeline.ImportSummary, error) {
	f.gotPath = path
	_, statErr := os.Stat(path)
	f.existed = statErr == nil
	f.summaries++
	if f.err != nil {
		return pipeline.ImportSummary{}, f.err
	}
	return pipeline.ImportSummary{Document: filepath.Base(path), Pages: 2, Parsed: 3, Created: 3}, nil
}

type fakeExporter struct{ from, to *time.Time }

func (f *fakeExporter) ExportCauseListXLSX(_ context.Context, from, to *time.Time) ([]byte, error) {
	f.from, f.to = from, to
	return []byte("xlsx-bytes"), nil
}

type fakeRuns struct{ run *entity.ImportRun }

func (f fakeRuns) Get(_ context.Context, id uuid.UUID) (*entity.ImportRun, error) {
	if f.run == nil || f.run.ID != id {
		return nil, fmt.Errorf("%w: import run %s", common.ErrNotFound, id)
	}
	return f.run, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context, time.Duration) error { return f.err }

type fakeQueue struct{ jobs []async.Job }

func (f *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeQueue) Shutdown(context.Context) {}

func upload(t *testing.T, url, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestServer(deps Deps, apiKey string) *Server {
	return NewServer(deps, common.ServerConfig{APIKey: apiKey, MaxUploadBytes: 1 << 20}, nil)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(Deps{Health: fakeHealth{}}, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	newTestServer(Deps{Health: fakeHealth{err: common.ErrDatabase}}, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuth(t *testing.T) {
	srv := newTestServer(Deps{Exporter: &fakeExporter{}}, "secret")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cause-lists/export", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/cause-lists/export", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/cause-lists/export", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// health stays public
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGazetteImport(t *testing.T) {
	gz := &fakeGazettes{}
	srv := newTestServer(Deps{Gazettes: gz}, "")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, upload(t, "/api/imports/gazettes", "names.xlsx", "workbook", map[string]string{"gazette_type": "change of name"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, true, got["success"])
	assert.EqualValues(t, 2, got["imported_count"])
	assert.EqualValues(t, 1, got["skipped_count"])
	assert.EqualValues(t, 3, got["total_rows"])
	assert.Equal(t, "CHANGE_OF_NAME", got["gazette_type"])
	assert.Len(t, got["errors"], 1)

	assert.Equal(t, "names.xlsx", gz.gotName)
	assert.Equal(t, constants.ChangeOfName, gz.gotType)
	assert.Equal(t, "workbook", gz.gotBody)
}

func TestGazetteImportRejects(t *testing.T) {
	srv := newTestServer(Deps{Gazettes: &fakeGazettes{err: fmt.Errorf("%w: bad workbook", common.ErrUnreadableDocument)}}, "")

	cases := []struct {
		name string
		req  *http.Request
		code int
	}{
		{"bad type", upload(t, "/api/imports/gazettes", "names.xlsx", "x", map[string]string{"gazette_type": "DIVORCE"}), http.StatusBadRequest},
		{"bad ext", upload(t, "/api/imports/gazettes", "names.csv", "x", map[string]string{"gazette_type": "CHANGE_OF_NAME"}), http.StatusBadRequest},
		{"no file", upload(t, "/api/imports/gazettes", "", "", map[string]string{"gazette_type": "CHANGE_OF_NAME"}), http.StatusBadRequest},
		{"unreadable", upload(t, "/api/imports/gazettes", "names.xlsx", "x", map[string]string{"gazette_type": "CHANGE_OF_NAME"}), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, tc.req)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestCauseListImportSync(t *testing.T) {
	cl := &fakeCauseLists{}
	srv := newTestServer(Deps{CauseLists: cl}, "")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, upload(t, "/api/imports/cause-lists", "list.pdf", "%PDF-1.4", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got pipeline.ImportSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "list.pdf", got.Document)
	assert.Equal(t, 3, got.Created)

	assert.True(t, cl.existed)
	assert.Equal(t, "list.pdf", filepath.Base(cl.gotPath))
	_, err := os.Stat(cl.gotPath)
	assert.True(t, os.IsNotExist(err), "upload is removed after a synchronous import")
}

func TestCauseListImportAsync(t *testing.T) {
	cl := &fakeCauseLists{}
	q := &fakeQueue{}
	srv := newTestServer(Deps{CauseLists: cl, Queue: q}, "")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, upload(t, "/api/imports/cause-lists", "list.pdf", "%PDF-1.4", map[string]string{"async": "true"}))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, q.jobs, 1)
	assert.Zero(t, cl.summaries)

	path := q.jobs[0].Path
	_, err := os.Stat(path)
	require.NoError(t, err)
	RemoveUpload(path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCauseListImportErrors(t *testing.T) {
	srv := newTestServer(Deps{CauseLists: &fakeCauseLists{err: errors.New("tesseract crashed")}}, "")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, upload(t, "/api/imports/cause-lists", "list.xlsx", "x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, upload(t, "/api/imports/cause-lists", "list.pdf", "x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestImportRun(t *testing.T) {
	run := &entity.ImportRun{ID: uuid.New(), Kind: "causelist", Status: string(constants.RunStatusSucceeded)}
	srv := newTestServer(Deps{Runs: fakeRuns{run: run}}, "")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports/"+run.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"SUCCEEDED"`)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport(t *testing.T) {
	ex := &fakeExporter{}
	srv := newTestServer(Deps{Exporter: ex}, "")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cause-lists/export?from=2024-01-01&to=2024-01-31", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "xlsx-bytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	require.NotNil(t, ex.from)
	require.NotNil(t, ex.to)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), *ex.to)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cause-lists/export?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "list.pdf", sanitizeFilename("../../etc/list.pdf"))
	assert.Equal(t, "list.pdf", sanitizeFilename(`C:\scans\list.pdf`))
	assert.Equal(t, "upload", sanitizeFilename(""))
}
