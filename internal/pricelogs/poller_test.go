package pricelogs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ngocvu/shopdash/internal/models"
	"github.com/ngocvu/shopdash/internal/pricelogs"
)

type fakeSource struct {
	page *models.PriceSyncLogPage
	err  error
}

func (f *fakeSource) PriceSyncLogs(ctx context.Context, limit, offset int, status string) (*models.PriceSyncLogPage, error) {
	return f.page, f.err
}

type fakeHub struct {
	payloads []any
}

func (f *fakeHub) Broadcast(payload any) {
	f.payloads = append(f.payloads, payload)
}

func page(total int, titles ...string) *models.PriceSyncLogPage {
	p := &models.PriceSyncLogPage{Total: total, Limit: 50}
	for _, title := range titles {
		p.Logs = append(p.Logs, models.PriceSyncLog{ProductTitle: title, Status: "SUCCESS"})
	}
	return p
}

func TestPollerPrimesWithoutReplaying(t *testing.T) {
	source := &fakeSource{page: page(10, "newest", "older")}
	hub := &fakeHub{}
	poller := pricelogs.New(source, hub)

	assert.NoError(t, poller.Poll(context.Background()))
	assert.Empty(t, hub.payloads, "first poll must not replay history")
}

func TestPollerBroadcastsDeltaOldestFirst(t *testing.T) {
	source := &fakeSource{page: page(10, "a")}
	hub := &fakeHub{}
	poller := pricelogs.New(source, hub)
	assert.NoError(t, poller.Poll(context.Background()))

	// Two new rows landed; the backend reports newest first.
	source.page = page(12, "newest", "second-newest", "old")
	assert.NoError(t, poller.Poll(context.Background()))

	if assert.Len(t, hub.payloads, 2) {
		first := hub.payloads[0].(map[string]any)
		second := hub.payloads[1].(map[string]any)
		assert.Equal(t, "second-newest", first["entry"].(models.PriceSyncLog).ProductTitle)
		assert.Equal(t, "newest", second["entry"].(models.PriceSyncLog).ProductTitle)
	}
}

func TestPollerNoNewRows(t *testing.T) {
	source := &fakeSource{page: page(5, "a")}
	hub := &fakeHub{}
	poller := pricelogs.New(source, hub)
	assert.NoError(t, poller.Poll(context.Background()))
	assert.NoError(t, poller.Poll(context.Background()))
	assert.Empty(t, hub.payloads)
}

func TestPollerSurfacesSourceError(t *testing.T) {
	source := &fakeSource{err: errors.New("backend returned 503")}
	poller := pricelogs.New(source, &fakeHub{})
	assert.Error(t, poller.Poll(context.Background()))
}
