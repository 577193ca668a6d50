package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hejijunhao/authbayes/internal/model"
)

func failDecision(key string) model.Decision {
	return model.Decision{
		Chunk:           "x00004",
		Event:           model.Event{Time: "1331901000", Key: model.Key(key), Result: model.Fail},
		Predicted:       true,
		Prediction:      model.Fail,
		Evidence:        "fail_only",
		LikelihoodRatio: 1e9,
		Prior:           0.25,
		BayesFactor:     2.5e8,
	}
}

// collector is an endpoint that records every document posted to it.
type collector struct {
	mu      sync.Mutex
	docs    []Document
	headers []http.Header
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var doc Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.mu.Lock()
	c.docs = append(c.docs, doc)
	c.headers = append(c.headers, r.Header.Clone())
	c.mu.Unlock()
}

func (c *collector) documents() []Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Document(nil), c.docs...)
}

func TestPostsAlertDocument(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c)
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(2), WithHeaders(map[string]string{"X-Team": "soc"}))
	ctx := context.Background()
	if err := out.Write(ctx, failDecision("U1@DOM1,C1")); err != nil {
		t.Fatal(err)
	}
	if err := out.Write(ctx, failDecision("U2@DOM1,C2")); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	docs := c.documents()
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	doc := docs[0]
	if doc.Source != "authbayes" || doc.SentAt.IsZero() || len(doc.Alerts) != 2 {
		t.Fatalf("document = %+v", doc)
	}
	a := doc.Alerts[0]
	if a.Chunk != "x00004" || a.Key != "U1@DOM1,C1" || a.Outcome != "F" || a.Prediction != "F" {
		t.Errorf("alert = %+v", a)
	}
	if len(a.Fields) != 2 || a.Fields[0] != "U1@DOM1" || a.Fields[1] != "C1" {
		t.Errorf("Fields = %v", a.Fields)
	}
	if a.Evidence != "fail_only" || a.LikelihoodRatio != 1e9 || a.Prior != 0.25 || a.BayesFactor != 2.5e8 {
		t.Errorf("scores = %+v", a)
	}

	h := c.headers[0]
	if h.Get("Content-Type") != "application/json" || h.Get("User-Agent") != "authbayes" || h.Get("X-Team") != "soc" {
		t.Errorf("headers = %v", h)
	}
	if got := out.Stats(); got != (Stats{Sent: 2}) {
		t.Errorf("Stats() = %+v", got)
	}
}

func TestDefaultFilterKeepsPredictedFailures(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c)
	defer srv.Close()

	out := New(srv.URL)
	ctx := context.Background()
	success := failDecision("u1")
	success.Prediction = model.Success
	unpredicted := model.Decision{Event: model.Event{Time: "1", Key: "u2", Result: model.Fail}}
	out.Write(ctx, success)
	out.Write(ctx, unpredicted)
	out.Write(ctx, failDecision("u3"))
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	docs := c.documents()
	if len(docs) != 1 || len(docs[0].Alerts) != 1 || docs[0].Alerts[0].Key != "u3" {
		t.Fatalf("documents = %+v, want one alert for u3", docs)
	}
}

func TestWithFilter(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c)
	defer srv.Close()

	missed := func(d model.Decision) bool { return d.Predicted && !d.Correct() }
	out := New(srv.URL, WithFilter(missed))
	hit := failDecision("hit")
	miss := failDecision("miss")
	miss.Prediction = model.Success
	out.Write(context.Background(), hit)
	out.Write(context.Background(), miss)
	out.Close()

	docs := c.documents()
	if len(docs) != 1 || len(docs[0].Alerts) != 1 || docs[0].Alerts[0].Key != "miss" {
		t.Fatalf("documents = %+v, want one alert for miss", docs)
	}
}

func TestFlushIntervalSendsPartialBatch(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c)
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(100), WithFlushInterval(20*time.Millisecond))
	defer out.Close()
	out.Write(context.Background(), failDecision("u1"))

	deadline := time.Now().Add(2 * time.Second)
	for len(c.documents()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("partial batch was never flushed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	out := New(srv.URL, WithRetryDelay(time.Millisecond))
	out.Write(context.Background(), failDecision("u1"))
	if err := out.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	if got := out.Stats(); got.Sent != 1 || got.Failed != 0 {
		t.Errorf("Stats() = %+v", got)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	var reported error
	out := New(srv.URL, WithRetryDelay(time.Millisecond), WithOnError(func(err error) { reported = err }))
	out.Write(context.Background(), failDecision("u1"))
	if err := out.Close(); err == nil {
		t.Fatal("Close succeeded, want undelivered alert error")
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
	if reported == nil {
		t.Error("error callback not called")
	}
	if got := out.Stats(); got.Failed != 1 {
		t.Errorf("Stats() = %+v", got)
	}
}

func TestDropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()

	out := New(srv.URL, WithQueueSize(1), WithBatchSize(1))
	for i := 0; i < 10; i++ {
		if err := out.Write(context.Background(), failDecision("u1")); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	close(release)
	if err := out.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	got := out.Stats()
	if got.Sent+got.Dropped != 10 {
		t.Errorf("sent %d + dropped %d != 10", got.Sent, got.Dropped)
	}
	if got.Dropped < 8 {
		t.Errorf("dropped = %d, want at least 8 with one queued and one in flight", got.Dropped)
	}
}

func TestWriteAfterClose(t *testing.T) {
	out := New("http://127.0.0.1:0")
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Write(context.Background(), failDecision("u1")); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}
	if err := out.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestCloseWithoutAlerts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	if err := New(srv.URL).Close(); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 0 {
		t.Error("POST sent with no alerts")
	}
}
