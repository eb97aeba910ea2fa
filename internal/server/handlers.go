package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/calebrow/fleetsift/internal/ingest"
	"github.com/calebrow/fleetsift/internal/inventory"
)

// maxIngestBytes caps one ingest request body.
const maxIngestBytes = 256 << 20

// ingestResponse is the success body of POST /api/v1/ingest.
type ingestResponse struct {
	Ingested int    `json:"ingested"`
	Sources  int    `json:"sources"`
	Stored   bool   `json:"stored"`
	BatchID  string `json:"batch_id,omitempty"`
}

// handleIngest accepts multipart file uploads, runs them through the
// pipeline, and persists the resulting records. Progress is broadcast to
// websocket subscribers as files complete.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBytes)

	reader, err := r.MultipartReader()
	if err != nil {
		BadRequest(w, "expected multipart/form-data upload: "+err.Error(), r.URL.Path)
		return
	}

	var sources []ingest.Source
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			BadRequest(w, "reading multipart body: "+err.Error(), r.URL.Path)
			return
		}
		if part.FormName() != "files" {
			continue
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			BadRequest(w, "reading uploaded file: "+err.Error(), r.URL.Path)
			return
		}
		name := part.FileName()
		if name == "" {
			name = "upload"
		}
		sources = append(sources, ingest.Source{Name: name, Data: data})
	}

	if len(sources) == 0 {
		BadRequest(w, "no files supplied (use form field 'files')", r.URL.Path)
		return
	}

	records, err := s.parser.Parse(r.Context(), sources, ingest.Options{
		Mapping:    s.mapping,
		OnProgress: s.hub.Broadcast,
	})
	if err != nil {
		var malformed *ingest.MalformedInputError
		switch {
		case errors.As(err, &malformed):
			BadRequest(w, err.Error(), r.URL.Path)
		case errors.Is(err, ingest.ErrCancelled):
			// Client went away; nothing useful to write.
			s.logger.Info("ingest cancelled by client", zap.Int("sources", len(sources)))
			WriteProblem(w, Problem{
				Type:   ProblemTypeCancelled,
				Title:  "Cancelled",
				Status: http.StatusRequestTimeout,
				Detail: err.Error(),
			})
		default:
			s.logger.Error("ingest failed", zap.Error(err))
			InternalError(w, err.Error(), r.URL.Path)
		}
		return
	}

	if err := s.repo.CreateBatch(r.Context(), records); err != nil {
		s.logger.Error("persisting ingested records failed", zap.Error(err))
		InternalError(w, "storing records: "+err.Error(), r.URL.Path)
		return
	}

	s.logger.Info("ingest complete",
		zap.Int("sources", len(sources)),
		zap.Int("records", len(records)),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ingestResponse{
		Ingested: len(records),
		Sources:  len(sources),
		Stored:   true,
	})
}

// handleListDevices serves filtered, paginated inventory listings.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := inventory.Filter{
		Category: q.Get("category"),
		Location: q.Get("location"),
		Search:   q.Get("search"),
	}
	opts := inventory.ListOptions{
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}
	if v := q.Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}

	result, err := s.repo.List(r.Context(), filter, opts)
	if err != nil {
		s.logger.Error("list devices failed", zap.Error(err))
		InternalError(w, err.Error(), r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, err := s.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			NotFound(w, "device "+id+" not found", r.URL.Path)
			return
		}
		s.logger.Error("get device failed", zap.String("id", id), zap.Error(err))
		InternalError(w, err.Error(), r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			NotFound(w, "device "+id+" not found", r.URL.Path)
			return
		}
		s.logger.Error("delete device failed", zap.String("id", id), zap.Error(err))
		InternalError(w, err.Error(), r.URL.Path)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
