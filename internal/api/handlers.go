package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/lanegrid/pkg/buildinfo"
	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/graph"
	"github.com/matzehuels/lanegrid/pkg/pipeline"
	"github.com/matzehuels/lanegrid/pkg/render"
)

// importResponse is the body of a successful import.
type importResponse struct {
	Project    string           `json:"project"`
	ActivityID string           `json:"activity_id"`
	Version    int64            `json:"version"`
	Summary    string           `json:"summary"`
	Rows       int              `json:"rows"`
	Imported   int              `json:"imported"`
	Stats      graph.BuildStats `json:"stats"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": buildinfo.Current(),
	})
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	names, err := s.runner.Store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": names})
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Store.Delete(r.Context(), chi.URLParam(r, "project")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	acts, err := s.runner.Activities(r.Context(), chi.URLParam(r, "project"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if acts == nil {
		acts = []pipeline.ActivityInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": acts})
}

func (s *Server) importFile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := s.opts.Defaults
	opts.Project = chi.URLParam(r, "project")
	opts.Activity = q.Get("activity")
	opts.SourceFormat = q.Get("format")
	opts.SourceName = q.Get("filename")
	opts.Container = splitList(q["container"], "/")
	opts.CallBehavior = splitList(q["call_behavior"], ",")
	opts.Logger = s.logger

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read multipart file"))
			return
		}
		defer file.Close()
		src = file
		if opts.SourceName == "" {
			opts.SourceName = header.Filename
		}
	}

	result, err := s.runner.Import(r.Context(), src, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, importResponse{
		Project:    result.Project,
		ActivityID: result.ActivityID,
		Version:    result.Version,
		Summary:    result.Summary(),
		Rows:       result.Stats.Rows,
		Imported:   result.Stats.Build.Imported(),
		Stats:      result.Stats.Build,
	})
}

func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	data, err := s.runner.Document(r.Context(), chi.URLParam(r, "project"), chi.URLParam(r, "activity"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", render.FormatJSON.ContentType())
	w.Write(data)
}

func (s *Server) renderActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := render.ParseFormat(q.Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := s.opts.Defaults
	opts.Formats = []render.Format{format}
	opts.Detailed = queryBool(q.Get("detailed"))
	opts.NoPorts = queryBool(q.Get("no_ports"))
	opts.Refresh = queryBool(q.Get("refresh"))
	opts.Title = q.Get("title")
	opts.Logger = s.logger
	if v := q.Get("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil || scale <= 0 {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid scale %q", v))
			return
		}
		opts.Scale = scale
	}

	artifacts, cached, err := s.runner.RenderStored(r.Context(), chi.URLParam(r, "project"), chi.URLParam(r, "activity"), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if cached {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.Write(artifacts[format])
}

// =============================================================================
// Helpers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// splitList flattens repeated query values that may also carry sep-joined
// lists.
func splitList(values []string, sep string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, sep) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}
