package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ngocvu/shopdash/internal/models"
	"github.com/ngocvu/shopdash/internal/workflow"
)

type fakeUploader struct {
	mu      sync.Mutex
	result  *models.UploadResult
	err     error
	calls   int
	started chan struct{} // closed when a call begins, if set
	release chan struct{} // blocks the call until closed, if set
}

func (f *fakeUploader) UploadCSV(ctx context.Context, filename string, file io.Reader) (*models.UploadResult, error) {
	f.mu.Lock()
	f.calls++
	started, release := f.started, f.release
	f.mu.Unlock()
	if started != nil {
		close(started)
		f.mu.Lock()
		f.started = nil
		f.mu.Unlock()
	}
	if release != nil {
		<-release
	}
	return f.result, f.err
}

type fakeStreams struct {
	mu      sync.Mutex
	ensured int
	cleared int
}

func (f *fakeStreams) EnsureActive() {
	f.mu.Lock()
	f.ensured++
	f.mu.Unlock()
}

func (f *fakeStreams) ClearBuffer() {
	f.mu.Lock()
	f.cleared++
	f.mu.Unlock()
}

func uploadResult(rows int) *models.UploadResult {
	r := &models.UploadResult{
		FileName:     "wine.csv",
		TotalRows:    rows,
		TotalColumns: 2,
		Columns:      []string{"Name", "Price"},
	}
	for i := 0; i < rows; i++ {
		r.Rows = append(r.Rows, models.Row{"Name": fmt.Sprintf("wine-%d", i), "Price": "10"})
	}
	return r
}

func TestSessionHappyPath(t *testing.T) {
	uploader := &fakeUploader{result: uploadResult(25)}
	streams := &fakeStreams{}
	session := workflow.NewSession(uploader, streams)

	assert.Equal(t, workflow.StageIdle, session.Stage())

	assert.NoError(t, session.SelectFile("wine.csv"))
	assert.Equal(t, workflow.StageFileSelected, session.Stage())

	_, err := session.StartUpload(context.Background(), "wine.csv", nil)
	assert.NoError(t, err)
	assert.Equal(t, workflow.StagePreviewing, session.Stage())

	page, columns, err := session.Preview(0, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 3, page.PageCount)
	assert.Equal(t, []string{"Name", "Price"}, columns)

	result, err := session.StartPush(context.Background(), func(ctx context.Context) (*models.PushResult, error) {
		return &models.PushResult{Status: "success", TotalProducts: 25, SuccessCount: 25}, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, workflow.StageCompleted, session.Stage())
	assert.Equal(t, 25, result.SuccessCount)
	assert.Equal(t, 1, streams.ensured, "log stream is ensured active for the push stage")
}

func TestSessionUploadFailureIsRetryable(t *testing.T) {
	uploader := &fakeUploader{err: errors.New("Only CSV files are supported")}
	session := workflow.NewSession(uploader, nil)

	assert.NoError(t, session.SelectFile("wine.pdf"))
	_, err := session.StartUpload(context.Background(), "wine.pdf", nil)
	assert.Error(t, err)
	assert.Equal(t, workflow.StageFailed, session.Stage())
	assert.Equal(t, "Only CSV files are supported", session.Snapshot().Error)

	// Retry succeeds without an explicit reset.
	uploader.err = nil
	uploader.result = uploadResult(3)
	_, err = session.StartUpload(context.Background(), "wine.csv", nil)
	assert.NoError(t, err)
	assert.Equal(t, workflow.StagePreviewing, session.Stage())
	assert.Empty(t, session.Snapshot().Error)
}

func TestSessionUploadRequiresSelectedFile(t *testing.T) {
	session := workflow.NewSession(&fakeUploader{}, nil)
	_, err := session.StartUpload(context.Background(), "", nil)
	assert.ErrorIs(t, err, workflow.ErrNoFileSelected)
}

func TestSessionConcurrentUploadRejected(t *testing.T) {
	uploader := &fakeUploader{
		result:  uploadResult(1),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	session := workflow.NewSession(uploader, nil)
	assert.NoError(t, session.SelectFile("wine.csv"))

	started := uploader.started
	go session.StartUpload(context.Background(), "wine.csv", nil)
	<-started

	assert.True(t, session.InFlight("upload"))
	assert.Equal(t, workflow.StageAnalyzing, session.Stage())
	_, err := session.StartUpload(context.Background(), "wine.csv", nil)
	assert.ErrorIs(t, err, workflow.ErrUploadInFlight)

	close(uploader.release)
	assert.Eventually(t, func() bool { return !session.InFlight("upload") }, 1e9, 1e7)
}

func TestSessionPushFailureRetainsPreview(t *testing.T) {
	session := workflow.NewSession(&fakeUploader{result: uploadResult(5)}, nil)
	assert.NoError(t, session.SelectFile("wine.csv"))
	_, err := session.StartUpload(context.Background(), "wine.csv", nil)
	assert.NoError(t, err)

	_, err = session.StartPush(context.Background(), func(ctx context.Context) (*models.PushResult, error) {
		return nil, errors.New("backend returned 500: category fetch failed")
	})
	assert.Error(t, err)
	assert.Equal(t, workflow.StageFailed, session.Stage())

	// The preview survives the failed push.
	page, _, err := session.Preview(0, 0)
	assert.NoError(t, err)
	assert.Len(t, page.Rows, 5)

	// And the push can be retried from the failed stage.
	result, err := session.StartPush(context.Background(), func(ctx context.Context) (*models.PushResult, error) {
		return &models.PushResult{Status: "success"}, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, workflow.StageCompleted, session.Stage())
}

func TestSessionConcurrentPushRejected(t *testing.T) {
	session := workflow.NewSession(&fakeUploader{result: uploadResult(1)}, nil)
	assert.NoError(t, session.SelectFile("wine.csv"))
	_, err := session.StartUpload(context.Background(), "wine.csv", nil)
	assert.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	go session.StartPush(context.Background(), func(ctx context.Context) (*models.PushResult, error) {
		close(started)
		<-release
		return &models.PushResult{Status: "success"}, nil
	})
	<-started

	_, err = session.StartPush(context.Background(), func(ctx context.Context) (*models.PushResult, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, workflow.ErrPushInFlight)

	close(release)
	assert.Eventually(t, func() bool { return session.Stage() == workflow.StageCompleted }, 1e9, 1e7)
}

func TestSessionPushWithoutPreview(t *testing.T) {
	session := workflow.NewSession(&fakeUploader{}, nil)
	_, err := session.StartPush(context.Background(), func(ctx context.Context) (*models.PushResult, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, workflow.ErrNoPreview)
}

func TestSessionReset(t *testing.T) {
	streams := &fakeStreams{}
	session := workflow.NewSession(&fakeUploader{result: uploadResult(5)}, streams)
	assert.NoError(t, session.SelectFile("wine.csv"))
	_, err := session.StartUpload(context.Background(), "wine.csv", nil)
	assert.NoError(t, err)

	session.Reset()
	assert.Equal(t, workflow.StageFileSelected, session.Stage(), "a selected file survives reset")
	assert.Equal(t, 1, streams.cleared, "reset clears the log buffer")

	state := session.Snapshot()
	assert.Nil(t, state.Upload)
	assert.Nil(t, state.Push)
	assert.Equal(t, 1, state.Page)

	_, _, err = session.Preview(0, 0)
	assert.ErrorIs(t, err, workflow.ErrNoPreview)
}

func TestSessionResetAbandonsPendingUpload(t *testing.T) {
	uploader := &fakeUploader{
		result:  uploadResult(5),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	session := workflow.NewSession(uploader, nil)
	assert.NoError(t, session.SelectFile("wine.csv"))

	started := uploader.started
	done := make(chan struct{})
	go func() {
		session.StartUpload(context.Background(), "wine.csv", nil)
		close(done)
	}()
	<-started

	session.Reset()
	close(uploader.release)
	<-done

	// The abandoned upload's resolution must not resurrect a preview.
	assert.Equal(t, workflow.StageFileSelected, session.Stage())
	_, _, err := session.Preview(0, 0)
	assert.ErrorIs(t, err, workflow.ErrNoPreview)
}

func TestSessionPaginationState(t *testing.T) {
	session := workflow.NewSession(&fakeUploader{result: uploadResult(25)}, nil)
	assert.NoError(t, session.SelectFile("wine.csv"))
	_, err := session.StartUpload(context.Background(), "wine.csv", nil)
	assert.NoError(t, err)

	page, _, err := session.Preview(3, 10)
	assert.NoError(t, err)
	assert.Len(t, page.Rows, 5)
	assert.False(t, page.HasNext)

	// A new upload resets pagination to page 1.
	assert.NoError(t, session.SelectFile("wine2.csv"))
	_, err = session.StartUpload(context.Background(), "wine2.csv", nil)
	assert.NoError(t, err)
	page, _, err = session.Preview(0, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1, page.Number)
}
