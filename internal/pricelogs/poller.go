// Package pricelogs periodically pulls the backend's price-sync history and
// pushes newly appeared rows to connected dashboards. The backend owns the
// store; this side keeps only a high-water mark.
package pricelogs

import (
	"context"
	"log"
	"sync"

	"github.com/ngocvu/shopdash/internal/jobs"
	"github.com/ngocvu/shopdash/internal/models"
)

const pollPageSize = 50

// Source is the slice of the gateway the poller needs.
type Source interface {
	PriceSyncLogs(ctx context.Context, limit, offset int, status string) (*models.PriceSyncLogPage, error)
}

// Broadcaster delivers new rows to connected clients.
type Broadcaster interface {
	Broadcast(payload any)
}

// Poller tracks how many rows the backend has reported and broadcasts the
// delta on each poll.
type Poller struct {
	source Source
	hub    Broadcaster

	mu        sync.Mutex
	lastTotal int
	primed    bool
}

func New(source Source, hub Broadcaster) *Poller {
	return &Poller{source: source, hub: hub}
}

// Poll fetches the newest page and broadcasts rows that appeared since the
// previous poll, oldest first. The first poll only primes the high-water
// mark so a restart does not replay history.
func (p *Poller) Poll(ctx context.Context) error {
	page, err := p.source.PriceSyncLogs(ctx, pollPageSize, 0, "")
	if err != nil {
		return err
	}

	p.mu.Lock()
	fresh := page.Total - p.lastTotal
	primed := p.primed
	p.lastTotal = page.Total
	p.primed = true
	p.mu.Unlock()

	if !primed || fresh <= 0 {
		return nil
	}
	if fresh > len(page.Logs) {
		fresh = len(page.Logs)
	}

	// The backend returns newest first; replay the delta in arrival order.
	for i := fresh - 1; i >= 0; i-- {
		p.hub.Broadcast(map[string]any{
			"type":  "price_sync",
			"entry": page.Logs[i],
		})
	}
	return nil
}

// RegisterJob wires the poller into the job manager under the ID the
// scheduler triggers.
func RegisterJob(manager *jobs.Manager, poller *Poller) {
	manager.Register("price-log-poll", "Price-sync log poll", func(ctx jobs.AppContext) {
		if err := poller.Poll(context.Background()); err != nil {
			log.Printf("Price-log poll failed: %v", err)
			ctx.JobManager().Fail("price-log-poll", err.Error())
		}
	})
}
