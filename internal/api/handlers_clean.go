package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/mdxprep/internal/parser"
	"github.com/dgallion1/mdxprep/internal/pipeline"
	"github.com/dgallion1/mdxprep/internal/tagfix"
	"github.com/go-chi/chi/v5"
)

type cleanRequest struct {
	Text             string    `json:"text"`
	OptionalTags     *[]string `json:"optional_tags"`
	DropStrayClosing *bool     `json:"drop_stray_closing"`
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+64*1024) // room for the JSON envelope

	var req cleanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if int64(len(req.Text)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("text exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	policy := s.policy
	if req.OptionalTags != nil {
		policy = tagfix.NewPolicy(*req.OptionalTags...)
	}
	drop := s.cfg.DropStrayClosing
	if req.DropStrayClosing != nil {
		drop = *req.DropStrayClosing
	}

	start := time.Now()
	res, err := pipeline.Process(req.Text, policy, pipeline.WithDropStrayClosing(drop))
	stats := s.orchestrator.Stats()
	if err != nil {
		stats.Record(time.Since(start), pipeline.OutcomeFailed)
		if errors.Is(err, parser.ErrParse) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.log.Error("clean failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	outcome := pipeline.OutcomeUnchanged
	if res.Changed {
		outcome = pipeline.OutcomeChanged
	}
	stats.Record(time.Since(start), outcome)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (s *Server) handleBatchClean(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	policy := s.policy
	if v, ok := r.MultipartForm.Value["optional_tags"]; ok {
		policy = tagfix.ParsePolicy(strings.Join(v, ","))
	}
	drop := s.cfg.DropStrayClosing
	if v := r.FormValue("drop_stray_closing"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			drop = b
		}
	}

	var docs []pipeline.Document
	var rejected []map[string]any
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsMarkdownFile(filename) {
			rejected = append(rejected, map[string]any{
				"filename": filename,
				"error":    fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)),
			})
			continue
		}

		f, err := fh.Open()
		if err != nil {
			rejected = append(rejected, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}
		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
			rejected = append(rejected, map[string]any{
				"filename": filename,
				"error":    "file too large or read error",
			})
			continue
		}
		if !utf8.Valid(data) {
			rejected = append(rejected, map[string]any{
				"filename": filename,
				"error":    "file is not valid UTF-8",
			})
			continue
		}
		docs = append(docs, pipeline.Document{Name: filename, Text: string(data)})
	}

	if len(docs) == 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error": "no acceptable files", "rejected": rejected})
		return
	}

	job := pipeline.NewJob(docs, policy, pipeline.WithDropStrayClosing(drop))
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":     job.ID,
		"status":     pipeline.StatusQueued,
		"documents":  len(docs),
		"rejected":   rejected,
		"poll_url":   fmt.Sprintf("/api/clean/%s/status", job.ID),
		"result_url": fmt.Sprintf("/api/clean/%s/result", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	if snap.Status == pipeline.StatusQueued || snap.Status == pipeline.StatusProcessing {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":  snap.ID,
		"status":  snap.Status,
		"results": job.Results(),
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
