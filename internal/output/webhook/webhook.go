// Package webhook posts predicted authentication failures to an HTTP
// endpoint as alert documents.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hejijunhao/authbayes/internal/model"
)

const (
	defaultBatchSize     = 50
	defaultQueueSize     = 1024
	defaultFlushInterval = 5 * time.Second
	defaultTimeout       = 10 * time.Second
	defaultRetryDelay    = time.Second
	defaultDrainTimeout  = 30 * time.Second
	maxRetries           = 3
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("webhook: closed")

// Alert is one posted decision.
type Alert struct {
	Chunk           string   `json:"chunk"`
	Time            string   `json:"time"`
	Key             string   `json:"key"`
	Fields          []string `json:"fields"`
	Outcome         string   `json:"outcome"`
	Prediction      string   `json:"prediction"`
	Evidence        string   `json:"evidence"`
	LikelihoodRatio float64  `json:"likelihood_ratio"`
	Prior           float64  `json:"prior"`
	BayesFactor     float64  `json:"bayes_factor"`
}

// NewAlert builds the alert for d.
func NewAlert(d model.Decision) Alert {
	return Alert{
		Chunk:           d.Chunk,
		Time:            d.Event.Time,
		Key:             string(d.Event.Key),
		Fields:          d.Event.Key.Fields(),
		Outcome:         d.Event.Result.String(),
		Prediction:      d.Prediction.String(),
		Evidence:        d.Evidence,
		LikelihoodRatio: d.LikelihoodRatio,
		Prior:           d.Prior,
		BayesFactor:     d.BayesFactor,
	}
}

// Document is the body of one POST.
type Document struct {
	Source string    `json:"source"`
	SentAt time.Time `json:"sent_at"`
	Alerts []Alert   `json:"alerts"`
}

// Stats counts alerts by fate.
type Stats struct {
	Sent    int64
	Failed  int64
	Dropped int64
}

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) { o.headers = h }
}

// WithBatchSize sets the number of alerts per document. Default: 50.
func WithBatchSize(n int) Option {
	return func(o *Output) { o.batchSize = n }
}

// WithQueueSize sets how many alerts may wait for delivery before new ones
// are dropped. Default: 1024.
func WithQueueSize(n int) Option {
	return func(o *Output) { o.queueSize = n }
}

// WithFlushInterval sets the maximum time an alert waits for its batch to
// fill. Default: 5s.
func WithFlushInterval(d time.Duration) Option {
	return func(o *Output) { o.flushInterval = d }
}

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) { o.client.Timeout = d }
}

// WithRetryDelay sets the first retry delay; it doubles on each attempt.
// Default: 1s.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Output) { o.retryDelay = d }
}

// WithFilter replaces the default PredictedFail filter.
func WithFilter(keep func(model.Decision) bool) Option {
	return func(o *Output) { o.keep = keep }
}

// WithOnError sets the callback for a document that could not be delivered.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(o *Output) { o.errFunc = f }
}

// PredictedFail keeps decisions that predicted a failed authentication.
func PredictedFail(d model.Decision) bool {
	return d.Predicted && d.Prediction == model.Fail
}

// Output queues alerts for kept decisions and posts them in batches from a
// background goroutine. Write never blocks: when the queue is full the
// alert is dropped and counted.
type Output struct {
	client        *http.Client
	url           string
	headers       map[string]string
	batchSize     int
	queueSize     int
	flushInterval time.Duration
	retryDelay    time.Duration
	keep          func(model.Decision) bool
	errFunc       func(error)

	mu     sync.RWMutex
	closed bool
	queue  chan Alert
	done   chan struct{}

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// New creates a webhook output targeting url and starts its sender.
func New(url string, opts ...Option) *Output {
	o := &Output{
		client:        &http.Client{Timeout: defaultTimeout},
		url:           url,
		batchSize:     defaultBatchSize,
		queueSize:     defaultQueueSize,
		flushInterval: defaultFlushInterval,
		retryDelay:    defaultRetryDelay,
		keep:          PredictedFail,
		errFunc:       func(err error) { slog.Warn("webhook delivery failed", "error", err) },
	}
	for _, opt := range opts {
		opt(o)
	}
	o.queue = make(chan Alert, o.queueSize)
	o.done = make(chan struct{})
	go o.run()
	return o
}

func (o *Output) Write(_ context.Context, d model.Decision) error {
	if !o.keep(d) {
		return nil
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrClosed
	}
	select {
	case o.queue <- NewAlert(d):
	default:
		o.dropped.Add(1)
		slog.Warn("webhook queue full, dropping alert", "chunk", d.Chunk, "key", d.Event.Key)
	}
	return nil
}

// Close delivers the queued alerts and stops the sender. It reports alerts
// that could not be delivered.
func (o *Output) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	select {
	case <-o.done:
	case <-time.After(defaultDrainTimeout):
		return fmt.Errorf("webhook: %d alerts still queued after %s", len(o.queue), defaultDrainTimeout)
	}
	if n := o.dropped.Load(); n > 0 {
		slog.Warn("webhook dropped alerts", "count", n)
	}
	if n := o.failed.Load(); n > 0 {
		return fmt.Errorf("webhook: %d alerts not delivered", n)
	}
	return nil
}

// Stats returns the delivery counters so far.
func (o *Output) Stats() Stats {
	return Stats{Sent: o.sent.Load(), Failed: o.failed.Load(), Dropped: o.dropped.Load()}
}

func (o *Output) run() {
	defer close(o.done)
	ticker := time.NewTicker(o.flushInterval)
	defer ticker.Stop()

	var batch []Alert
	for {
		select {
		case a, ok := <-o.queue:
			if !ok {
				o.send(batch)
				return
			}
			batch = append(batch, a)
			if len(batch) >= o.batchSize {
				o.send(batch)
				batch = nil
			}
		case <-ticker.C:
			o.send(batch)
			batch = nil
		}
	}
}

func (o *Output) send(batch []Alert) {
	if len(batch) == 0 {
		return
	}
	body, err := json.Marshal(Document{Source: "authbayes", SentAt: time.Now().UTC(), Alerts: batch})
	if err == nil {
		err = o.post(body)
	}
	if err != nil {
		o.failed.Add(int64(len(batch)))
		o.errFunc(fmt.Errorf("%d alerts: %w", len(batch), err))
		return
	}
	o.sent.Add(int64(len(batch)))
}

// post retries transport errors, 429 and 5xx with doubling delays.
func (o *Output) post(body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(o.retryDelay << (attempt - 1))
		}

		req, err := http.NewRequest(http.MethodPost, o.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "authbayes")
		for k, v := range o.headers {
			req.Header.Set(k, v)
		}

		resp, err := o.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("webhook: %w", err)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("webhook: HTTP %d", resp.StatusCode)
		default:
			return fmt.Errorf("webhook: HTTP %d", resp.StatusCode)
		}
	}
	return lastErr
}
