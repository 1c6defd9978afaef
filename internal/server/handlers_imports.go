package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/async"
)

// UploadDir holds cause-list uploads until they are imported.
func UploadDir() string {
	return filepath.Join(os.TempDir(), "caselaw-uploads")
}

// RemoveUpload deletes the per-upload directory around path if path is an upload.
func RemoveUpload(path string) {
	dir := filepath.Dir(path)
	if filepath.Dir(dir) == UploadDir() {
		_ = os.RemoveAll(dir)
	}
}

func (s *Server) handleGazetteImport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Gazettes == nil {
		jsonError(w, "gazette imports are not enabled", http.StatusNotImplemented)
		return
	}
	file, filename, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	raw := r.FormValue("gazette_type")
	t, valid := constants.ParseGazetteType(raw)
	if !valid {
		jsonError(w, fmt.Sprintf("gazette_type must be one of %s", strings.Join(constants.GazetteTypesAsStrings(), ", ")), http.StatusBadRequest)
		return
	}
	if constants.MapExtToFormat(filepath.Ext(filename)) == "" {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	res, err := s.deps.Gazettes.Import(r.Context(), file, filename, t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCauseListImport(w http.ResponseWriter, r *http.Request) {
	if s.deps.CauseLists == nil {
		jsonError(w, "cause-list imports are not enabled", http.StatusNotImplemented)
		return
	}
	file, filename, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	if constants.MapExtToFormat(filepath.Ext(filename)) != constants.PDF {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	path, err := saveUpload(file, filename)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if r.FormValue("async") == "true" && s.deps.Queue != nil {
		job := async.Job{
			Path:        path,
			Force:       r.FormValue("force") == "true",
			SubmittedAt: time.Now().UTC(),
			TraceID:     middleware.GetReqID(r.Context()),
		}
		if err := s.deps.Queue.Enqueue(r.Context(), job); err != nil {
			RemoveUpload(path)
			jsonError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"document": filename, "status": "queued"})
		return
	}

	defer RemoveUpload(path)
	sum, err := s.deps.CauseLists.Import(r.Context(), path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleImportRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runs == nil {
		jsonError(w, "import runs are not available", http.StatusNotImplemented)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		jsonError(w, "run id must be a UUID", http.StatusBadRequest)
		return
	}
	run, err := s.deps.Runs.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// readUpload parses the multipart body and returns the "file" part. It writes the error
// response itself when ok is false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, bool) {
	limit := s.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = 50 << 20
	}
	// extra 1MB for form overhead
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return nil, "", false
	}
	if header.Size > limit {
		_ = file.Close()
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", limit), http.StatusRequestEntityTooLarge)
		return nil, "", false
	}
	return file, sanitizeFilename(header.Filename), true
}

func saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(UploadDir(), 0o755); err != nil {
		return "", fmt.Errorf("upload dir: %w", err)
	}
	dir, err := os.MkdirTemp(UploadDir(), "upload-*")
	if err != nil {
		return "", fmt.Errorf("upload dir: %w", err)
	}
	path := filepath.Join(dir, filename)
	dst, err := os.Create(path)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path, nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
