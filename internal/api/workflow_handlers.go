package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ngocvu/shopdash/internal/gateway"
	"github.com/ngocvu/shopdash/internal/preview"
	"github.com/ngocvu/shopdash/internal/sheet"
	"github.com/ngocvu/shopdash/internal/workflow"
)

// Uploads are buffered in memory before forwarding; cap them.
const maxUploadSize = 32 << 20 // 32MB

func (s *Server) handleGetWorkflowState(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"workflow":      s.app.Session().Snapshot(),
		"stream_status": s.app.LogRelay().Status(),
	})
}

func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FileName string `json:"file_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := s.app.Session().SelectFile(payload.FileName); err != nil {
		s.respondWorkflowError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, s.app.Session().Snapshot())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		RespondWithError(w, http.StatusBadRequest, "File too large or malformed form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Missing form field 'file'")
		return
	}
	defer file.Close()

	filename, body, err := sheet.NormalizeUpload(header.Filename, file)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Failed to read workbook: "+err.Error())
		return
	}

	session := s.app.Session()
	// The attached file is the selection; uploading again after an analysis
	// or a finished push starts a new run and replaces the preview. Only a
	// session that is mid-analysis or mid-push refuses.
	if err := session.SelectFile(filename); err != nil {
		s.respondWorkflowError(w, err)
		return
	}

	result, err := session.StartUpload(r.Context(), filename, body)
	if err != nil {
		s.respondWorkflowError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	window, columns, err := s.app.Session().Preview(page, pageSize)
	if err != nil {
		s.respondWorkflowError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"columns": columns,
		"preview": window,
		"cells":   preview.Render(window, columns),
	})
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Via string `json:"via"`
	}
	// An empty body means the default transport.
	_ = json.NewDecoder(r.Body).Decode(&payload)

	session := s.app.Session()
	var push workflow.PushFunc
	switch payload.Via {
	case "", "backend":
		push = s.app.Gateway().PushToShopify
	case "webhook":
		push = s.webhookPush(session)
	default:
		RespondWithError(w, http.StatusBadRequest, "Unknown push transport: "+payload.Via)
		return
	}

	result, err := session.StartPush(r.Context(), push)
	if err != nil {
		s.respondWorkflowError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.app.Session().Reset()
	RespondWithJSON(w, http.StatusOK, s.app.Session().Snapshot())
}

// respondWorkflowError maps the workflow/gateway error taxonomy onto HTTP
// statuses. The message is always the human-readable one the UI banner shows.
func (s *Server) respondWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrUploadInFlight),
		errors.Is(err, workflow.ErrPushInFlight),
		errors.Is(err, workflow.ErrBusy):
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, workflow.ErrNoFileSelected),
		errors.Is(err, workflow.ErrNoPreview):
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var cfgErr *gateway.ConfigError
	if errors.As(err, &cfgErr) {
		RespondWithError(w, http.StatusInternalServerError, cfgErr.Error())
		return
	}
	var backendErr *gateway.BackendError
	if errors.As(err, &backendErr) {
		RespondWithError(w, http.StatusBadGateway, backendErr.Detail)
		return
	}
	RespondWithError(w, http.StatusBadGateway, err.Error())
}

// handleGetContent proxies the backend's generated-content payload.
func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	raw, err := s.app.Gateway().FetchGeneratedContent(r.Context())
	if err != nil {
		s.respondWorkflowError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// handleGetPriceSyncLogs proxies one page of the backend's price-sync
// history.
func (s *Server) handleGetPriceSyncLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	offset, _ := strconv.Atoi(q.Get("offset"))

	page, err := s.app.Gateway().PriceSyncLogs(r.Context(), limit, offset, q.Get("status"))
	if err != nil {
		s.respondWorkflowError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetJobsStatus(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.JobManager().GetStatus())
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ID == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing job id")
		return
	}
	if err := s.app.JobManager().RunJob(payload.ID, s.app); err != nil {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
