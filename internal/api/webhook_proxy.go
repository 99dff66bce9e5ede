package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ngocvu/shopdash/internal/models"
	"github.com/ngocvu/shopdash/internal/workflow"
)

// webhookClient is shared by the proxy handlers and the webhook push
// transport. Automation flows can take a while to answer.
var webhookClient = &http.Client{Timeout: 120 * time.Second}

// handleWebhookForward forwards the client's request verbatim to the
// configured automation webhook. This is a same-origin hop that exists only
// so the browser never talks to the webhook host directly.
//
// Multipart bodies are streamed through with the caller's own Content-Type
// header: that header carries the boundary parameter, so the proxy must not
// compose its own. JSON bodies are decoded and re-serialized.
func (s *Server) handleWebhookForward(w http.ResponseWriter, r *http.Request) {
	webhookURL := s.app.Config().Webhook.URL
	if webhookURL == "" {
		RespondWithError(w, http.StatusInternalServerError,
			"webhook URL is not configured; set SHOPDASH_WEBHOOK_URL (or N8N_WEBHOOK_URL)")
		return
	}

	contentType := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)

	var req *http.Request
	var err error
	if strings.HasPrefix(mediaType, "multipart/") {
		req, err = http.NewRequestWithContext(r.Context(), http.MethodPost, webhookURL, r.Body)
		if err == nil {
			req.Header.Set("Content-Type", contentType)
		}
	} else {
		var payload any
		if decodeErr := json.NewDecoder(r.Body).Decode(&payload); decodeErr != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		body, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		req, err = http.NewRequestWithContext(r.Context(), http.MethodPost, webhookURL, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		log.Printf("Error creating webhook request: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to create request")
		return
	}

	s.relayWebhookResponse(w, req)
}

// handleWebhookUpload is the file-specialized variant: it pulls the uploaded
// file out of the caller's form and re-wraps it, plus any remaining fields,
// into a fresh multipart body under the field name the destination expects.
func (s *Server) handleWebhookUpload(w http.ResponseWriter, r *http.Request) {
	webhookURL := s.app.Config().Webhook.URL
	if webhookURL == "" {
		RespondWithError(w, http.StatusInternalServerError,
			"webhook URL is not configured; set SHOPDASH_WEBHOOK_URL (or N8N_WEBHOOK_URL)")
		return
	}

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

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(s.app.Config().Webhook.FileField, header.Filename)
	if err == nil {
		_, err = io.Copy(part, file)
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to rebuild form body")
		return
	}
	for field, values := range r.MultipartForm.Value {
		for _, value := range values {
			writer.WriteField(field, value)
		}
	}
	if err := writer.Close(); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to rebuild form body")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, webhookURL, &body)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create request")
		return
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	s.relayWebhookResponse(w, req)
}

// relayWebhookResponse executes the forwarded request and maps the
// destination's answer back to the caller: status passthrough with the raw
// body on failure, the destination's JSON on success, and {"success": true}
// for a fire-and-forget webhook that returns no parsable JSON.
func (s *Server) relayWebhookResponse(w http.ResponseWriter, req *http.Request) {
	resp, err := webhookClient.Do(req)
	if err != nil {
		log.Printf("Error forwarding to webhook: %v", err)
		RespondWithError(w, http.StatusBadGateway, "Failed to reach webhook: "+err.Error())
		return
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, "Failed to read webhook response")
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		RespondWithJSON(w, resp.StatusCode, map[string]any{
			"error":  strings.TrimSpace(string(raw)),
			"status": resp.StatusCode,
		})
		return
	}

	var parsed any
	if json.Unmarshal(raw, &parsed) != nil {
		RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// webhookPush is the push transport that sends the uploaded rows to the
// automation webhook instead of the backend. A webhook that answers with
// anything other than a push summary is treated as fire-and-forget success.
func (s *Server) webhookPush(session *workflow.Session) workflow.PushFunc {
	return func(ctx context.Context) (*models.PushResult, error) {
		webhookURL := s.app.Config().Webhook.URL
		if webhookURL == "" {
			return nil, fmt.Errorf("webhook URL is not configured; set SHOPDASH_WEBHOOK_URL (or N8N_WEBHOOK_URL)")
		}

		rows := session.UploadRows()
		body, err := json.Marshal(map[string]any{
			"file_name": session.Snapshot().FileName,
			"products":  rows,
		})
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := webhookClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("forwarding push to webhook: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, fmt.Errorf("reading webhook response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}

		var result models.PushResult
		if json.Unmarshal(raw, &result) != nil || result.Status == "" {
			result = models.PushResult{Status: "success", TotalProducts: len(rows)}
		}
		return &result, nil
	}
}
