// Package stream consumes the backend's server-sent-event log feed.
// Messages are parsed, optionally filtered down to significant lines, and
// appended to an arrival-ordered buffer that the API layer replays to
// browsers.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ngocvu/shopdash/internal/models"
)

// Status is the connection health of the consumer.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Relevance keywords for the filtered display variant. Matches are
// case-sensitive; informational chatter contains none of these.
var relevanceKeywords = []string{"Success", "Failed", "Error", "✅", "❌"}

// Relevant reports whether a message passes the significance filter.
func Relevant(message string) bool {
	for _, kw := range relevanceKeywords {
		if strings.Contains(message, kw) {
			return true
		}
	}
	return false
}

// Options configure a subscription.
type Options struct {
	// Filter suppresses messages containing none of the relevance keywords.
	Filter bool
	// Reconnect enables bounded exponential backoff after a dropped
	// connection. Off by default: the historical behavior is to stay
	// disconnected until the consumer is reopened.
	Reconnect bool

	OnEvent func(models.LogEntry)
	OnOpen  func()
	OnError func(error)
}

// Consumer owns the long-lived SSE connection and the log buffer.
type Consumer struct {
	url        string
	httpClient *http.Client

	mu          sync.Mutex
	status      Status
	entries     []models.LogEntry
	parseErrors int
}

// New creates a consumer for the given SSE endpoint. No connection is opened
// until Subscribe is called.
func New(url string) *Consumer {
	return &Consumer{
		url:    url,
		status: StatusConnecting,
		// No overall timeout: the stream is long-lived by design.
		httpClient: &http.Client{},
	}
}

// Status returns the current connection health.
func (c *Consumer) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Consumer) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// Entries returns a copy of the buffered log history in arrival order.
func (c *Consumer) Entries() []models.LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.LogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Clear drops the buffered history. Called on workflow reset or by explicit
// user action; the connection itself is untouched.
func (c *Consumer) Clear() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}

// ParseErrors reports how many stream payloads failed to parse. Bad payloads
// are counted and logged, never surfaced to the user.
func (c *Consumer) ParseErrors() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parseErrors
}

func (c *Consumer) append(entry models.LogEntry) {
	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()
}

// Subscription is a cancellable handle on the consumer's connection.
type Subscription struct {
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Dispose tears down the underlying connection. It is idempotent and safe to
// call after an error has already closed the stream.
func (s *Subscription) Dispose() {
	s.once.Do(s.cancel)
}

// Done is closed when the consumer goroutine has fully exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Subscribe opens the SSE connection and starts delivering entries to the
// callbacks. Callbacks run on the consumer goroutine; they must not block
// indefinitely.
func (c *Consumer) Subscribe(opts Options) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		backoff := time.Second
		for {
			err := c.consume(ctx, opts)
			if ctx.Err() != nil {
				c.setStatus(StatusDisconnected)
				return
			}
			c.setStatus(StatusDisconnected)
			if opts.OnError != nil {
				opts.OnError(err)
			}
			if !opts.Reconnect {
				return
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			c.setStatus(StatusConnecting)
		}
	}()

	return sub
}

// consume runs one connection until it drops or the context is cancelled.
func (c *Consumer) consume(ctx context.Context, opts Options) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("log stream returned %s", resp.Status)
	}

	c.setStatus(StatusConnected)
	if opts.OnOpen != nil {
		opts.OnOpen()
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			// Blank line terminates the event.
			if data.Len() > 0 {
				c.handlePayload(data.String(), opts)
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
			// Keep-alive comment from the producer.
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("log stream closed by server")
}

func (c *Consumer) handlePayload(raw string, opts Options) {
	entry, err := ParseEntry(raw)
	if err != nil {
		c.mu.Lock()
		c.parseErrors++
		c.mu.Unlock()
		// Operator-facing only; a bad message never interrupts the stream.
		log.Printf("log stream: discarding malformed payload: %v", err)
		return
	}
	if opts.Filter && !Relevant(entry.Message) {
		return
	}
	c.append(entry)
	if opts.OnEvent != nil {
		opts.OnEvent(entry)
	}
}

// ParseEntry decodes one stream payload into a LogEntry. The producer
// occasionally wraps the JSON in one extra layer of quotes (a repr artifact),
// and that inner text can carry single-quoted keys; both are tolerated.
func ParseEntry(raw string) (models.LogEntry, error) {
	text := strings.TrimSpace(raw)
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if first == last && (first == '"' || first == '\'') {
			text = text[1 : len(text)-1]
		}
	}

	var entry models.LogEntry
	if err := json.Unmarshal([]byte(text), &entry); err == nil {
		return entry, nil
	}

	// Second chance for single-quoted pseudo-JSON.
	requoted := strings.ReplaceAll(text, "'", `"`)
	if err := json.Unmarshal([]byte(requoted), &entry); err != nil {
		return models.LogEntry{}, fmt.Errorf("unparsable payload %q: %w", raw, err)
	}
	return entry, nil
}
