// Package workflow owns the upload -> preview -> push lifecycle. The session
// is the testable unit: it holds the stage machine and the data each stage
// produced, independent of any rendering or transport.
package workflow

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/ngocvu/shopdash/internal/models"
	"github.com/ngocvu/shopdash/internal/preview"
)

// Stage is one step of the upload/preview/push lifecycle.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageFileSelected Stage = "file_selected"
	StageAnalyzing    Stage = "analyzing"
	StagePreviewing   Stage = "previewing"
	StagePushing      Stage = "pushing"
	StageCompleted    Stage = "completed"
	StageFailed       Stage = "failed"
)

var (
	ErrUploadInFlight = errors.New("an upload is already in flight")
	ErrPushInFlight   = errors.New("a push is already in flight")
	ErrNoFileSelected = errors.New("no file selected")
	ErrNoPreview      = errors.New("nothing has been uploaded yet")
	ErrBusy           = errors.New("an operation is in flight; try again when it finishes")
)

// Uploader analyzes a CSV on the backend. Satisfied by *gateway.Client.
type Uploader interface {
	UploadCSV(ctx context.Context, filename string, file io.Reader) (*models.UploadResult, error)
}

// PushFunc performs the push leg. The deployment decides whether this hits
// the backend gateway or the webhook proxy; the session does not care.
type PushFunc func(ctx context.Context) (*models.PushResult, error)

// StreamControl lets the session drive the log stream lifecycle without
// owning the transport.
type StreamControl interface {
	// EnsureActive opens the log stream if it is not already open. Only the
	// push stage needs it live.
	EnsureActive()
	// ClearBuffer drops the buffered log history on reset.
	ClearBuffer()
}

// noopStreams is used when no stream controller is wired (tests, CLI use).
type noopStreams struct{}

func (noopStreams) EnsureActive() {}
func (noopStreams) ClearBuffer()  {}

// Session is one merchant's workflow state. All mutation goes through the
// guarded transition methods; the mutex is released around network calls so
// reads stay responsive while an upload or push runs.
type Session struct {
	uploader Uploader
	streams  StreamControl

	mu         sync.Mutex
	generation int
	stage      Stage
	fileName   string
	upload     *models.UploadResult
	pushResult *models.PushResult
	lastError  string
	page       int
	pageSize   int
	inFlight   map[string]bool
}

// NewSession creates an idle session. streams may be nil.
func NewSession(uploader Uploader, streams StreamControl) *Session {
	if streams == nil {
		streams = noopStreams{}
	}
	return &Session{
		uploader: uploader,
		streams:  streams,
		stage:    StageIdle,
		page:     1,
		pageSize: preview.DefaultPageSize,
		inFlight: make(map[string]bool),
	}
}

// Stage returns the current lifecycle stage.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// SelectFile records the user's chosen file and moves to file_selected.
// No network call happens here. Selecting a new file clears a previous run's
// outcome but keeps the preview until a new upload replaces it.
func (s *Session) SelectFile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		return ErrNoFileSelected
	}
	if s.stage == StageAnalyzing || s.stage == StagePushing {
		return ErrBusy
	}
	s.fileName = name
	s.pushResult = nil
	s.lastError = ""
	s.stage = StageFileSelected
	return nil
}

// StartUpload confirms the selected file and runs the backend analysis.
// Allowed from file_selected, and from failed so the user can retry without
// an explicit reset. On success the result replaces any previous preview and
// pagination returns to page 1.
func (s *Session) StartUpload(ctx context.Context, filename string, file io.Reader) (*models.UploadResult, error) {
	s.mu.Lock()
	if s.inFlight["upload"] {
		s.mu.Unlock()
		return nil, ErrUploadInFlight
	}
	if s.stage != StageFileSelected && s.stage != StageFailed {
		s.mu.Unlock()
		return nil, ErrNoFileSelected
	}
	if filename == "" {
		filename = s.fileName
	}
	if filename == "" {
		s.mu.Unlock()
		return nil, ErrNoFileSelected
	}
	gen := s.generation
	s.fileName = filename
	s.inFlight["upload"] = true
	s.stage = StageAnalyzing
	s.mu.Unlock()

	result, err := s.uploader.UploadCSV(ctx, filename, file)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight["upload"] = false
	if gen != s.generation {
		// The session was reset while the call was pending; the outcome is
		// no longer observed.
		return nil, err
	}
	if err != nil {
		s.stage = StageFailed
		s.lastError = err.Error()
		return nil, err
	}
	s.upload = result
	s.pushResult = nil
	s.lastError = ""
	s.page = 1
	s.stage = StagePreviewing
	return result, nil
}

// Preview returns one page of the uploaded rows plus the frozen column set.
// page and pageSize of 0 keep the session's current values.
func (s *Session) Preview(page, pageSize int) (preview.Page, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upload == nil {
		return preview.Page{}, nil, ErrNoPreview
	}
	if pageSize > 0 {
		s.pageSize = pageSize
	}
	if page > 0 {
		s.page = page
	}
	window := preview.Window(s.upload.Rows, s.page, s.pageSize)
	s.page = window.Number
	return window, preview.Columns(s.upload), nil
}

// StartPush runs the push leg. Allowed from previewing, and from failed when
// a preview is still held so a failed push can be retried. The log stream is
// ensured active for the duration; the preview is retained on failure so the
// user does not lose it.
func (s *Session) StartPush(ctx context.Context, push PushFunc) (*models.PushResult, error) {
	s.mu.Lock()
	if s.inFlight["push"] {
		s.mu.Unlock()
		return nil, ErrPushInFlight
	}
	if s.upload == nil || (s.stage != StagePreviewing && s.stage != StageFailed) {
		s.mu.Unlock()
		return nil, ErrNoPreview
	}
	gen := s.generation
	s.inFlight["push"] = true
	s.stage = StagePushing
	s.mu.Unlock()

	s.streams.EnsureActive()
	result, err := push(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight["push"] = false
	if gen != s.generation {
		return nil, err
	}
	if err != nil {
		s.stage = StageFailed
		s.lastError = err.Error()
		return nil, err
	}
	s.pushResult = result
	s.lastError = ""
	s.stage = StageCompleted
	return result, nil
}

// Reset clears the run's data and the log buffer. With a file still selected
// the session returns to file_selected, otherwise to idle. A reset while an
// operation is pending abandons it: its eventual resolution is discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	s.generation++
	s.upload = nil
	s.pushResult = nil
	s.lastError = ""
	s.page = 1
	if s.fileName != "" {
		s.stage = StageFileSelected
	} else {
		s.stage = StageIdle
	}
	s.mu.Unlock()

	s.streams.ClearBuffer()
}

// InFlight reports whether the named action ("upload" or "push") is pending.
func (s *Session) InFlight(action string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[action]
}

// UploadRows returns the full uploaded row set, or nil before an upload.
// The webhook push variant forwards these to the automation endpoint.
func (s *Session) UploadRows() []models.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upload == nil {
		return nil
	}
	return s.upload.Rows
}

// UploadSummary is the part of the upload result shown in the state banner.
type UploadSummary struct {
	FileName     string   `json:"file_name"`
	TotalRows    int      `json:"total_rows"`
	TotalColumns int      `json:"total_columns"`
	Columns      []string `json:"columns"`
}

// State is a point-in-time snapshot for rendering.
type State struct {
	Stage    Stage              `json:"stage"`
	FileName string             `json:"file_name,omitempty"`
	Error    string             `json:"error,omitempty"`
	Upload   *UploadSummary     `json:"upload,omitempty"`
	Push     *models.PushResult `json:"push,omitempty"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

// Snapshot returns the current state for rendering.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := State{
		Stage:    s.stage,
		FileName: s.fileName,
		Error:    s.lastError,
		Push:     s.pushResult,
		Page:     s.page,
		PageSize: s.pageSize,
	}
	if s.upload != nil {
		state.Upload = &UploadSummary{
			FileName:     s.upload.FileName,
			TotalRows:    s.upload.TotalRows,
			TotalColumns: s.upload.TotalColumns,
			Columns:      s.upload.Columns,
		}
	}
	return state
}
