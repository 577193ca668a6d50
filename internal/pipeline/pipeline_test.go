package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hejijunhao/authbayes/internal/connector/dir"
	"github.com/hejijunhao/authbayes/internal/engine"
	"github.com/hejijunhao/authbayes/internal/engine/classifier"
	"github.com/hejijunhao/authbayes/internal/engine/parser"
	"github.com/hejijunhao/authbayes/internal/logging"
	"github.com/hejijunhao/authbayes/internal/model"
	"github.com/hejijunhao/authbayes/internal/snapshot"
	snapfile "github.com/hejijunhao/authbayes/internal/snapshot/file"
	"github.com/hejijunhao/authbayes/internal/summary"
)

// --- fixtures ---

var chunks = map[int]string{
	0: "100,u1,p,S\n101,u1,p,F\n102,u2,p,S\n103,u3,p,F\n",
	1: "200,u1,p,S\n\n201,u3,p,F\n202,u4,p,S\n",
	2: "300,u2,p,F\n",
}

type env struct {
	input     string
	snapshots snapshot.Store
	summaries *summary.Dir
}

func newEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	input := filepath.Join(root, "input")
	if err := os.MkdirAll(input, 0755); err != nil {
		t.Fatal(err)
	}
	for n, body := range chunks {
		if err := os.WriteFile(filepath.Join(input, model.ChunkName(n)), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	snaps, err := snapfile.New(filepath.Join(root, "intermediate"))
	if err != nil {
		t.Fatalf("snapshot store: %v", err)
	}
	return env{input: input, snapshots: snaps, summaries: summary.NewDir(filepath.Join(root, "summary"))}
}

func (e env) pipeline(t *testing.T, cls *classifier.Classifier, opts ...Option) *Pipeline {
	t.Helper()
	src, err := dir.New(e.input, false)
	if err != nil {
		t.Fatal(err)
	}
	return New(src, engine.New(parser.Default(), cls), e.snapshots, e.summaries, opts...)
}

func (e env) train(t *testing.T) {
	t.Helper()
	cls := classifier.New(0, classifier.WithPrediction(false), classifier.WithFullTabulation(true))
	if err := e.pipeline(t, cls).Train(context.Background(), 0); err != nil {
		t.Fatalf("Train error: %v", err)
	}
}

// recordingOutput collects decisions in memory.
type recordingOutput struct {
	mu        sync.Mutex
	decisions []model.Decision
	closed    bool
	failAfter int
}

func (r *recordingOutput) Write(_ context.Context, d model.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAfter > 0 && len(r.decisions) >= r.failAfter {
		return fmt.Errorf("recording output full")
	}
	r.decisions = append(r.decisions, d)
	return nil
}

func (r *recordingOutput) Close() error {
	r.closed = true
	return nil
}

// --- tests ---

func TestTrainWritesSnapshotAndSummary(t *testing.T) {
	e := newEnv(t)
	e.train(t)

	s, err := e.summaries.Read(0)
	if err != nil {
		t.Fatalf("Read summary: %v", err)
	}
	if s.Results.Success != 2 || s.Results.Fail != 2 || s.Predictions != nil {
		t.Errorf("summary = %+v", s)
	}

	ctx := context.Background()
	counts, err := e.snapshots.LoadCounts(ctx, 0)
	if err != nil {
		t.Fatalf("LoadCounts: %v", err)
	}
	if counts.SuccessByKey["u1,p"] != 1 || counts.FailByKey["u3,p"] != 1 {
		t.Errorf("counts = %+v", counts)
	}
	raw, err := e.snapshots.LoadRawLog(ctx, 0)
	if err != nil {
		t.Fatalf("LoadRawLog: %v", err)
	}
	if len(raw.Success) != 2 || len(raw.Fail) != 2 {
		t.Errorf("raw log = %+v", raw)
	}
}

func TestRunClassifiesChunks(t *testing.T) {
	e := newEnv(t)
	e.train(t)

	out := &recordingOutput{}
	p := e.pipeline(t, classifier.New(0), WithOutput(out))
	if err := p.Run(context.Background(), 1, 2); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	p.Close()

	one, err := e.summaries.Read(1)
	if err != nil {
		t.Fatalf("Read summary 1: %v", err)
	}
	wantOne := model.Summary{
		Results:     model.ResultCounts{Success: 2, Fail: 1},
		Predictions: &model.Tally{CorrectSuccess: 2, CorrectFail: 1},
	}
	if one.Results != wantOne.Results || *one.Predictions != *wantOne.Predictions {
		t.Errorf("summary 1 = %+v / %+v", one.Results, one.Predictions)
	}

	// u2 was last seen in chunk 0, outside the window by chunk 2.
	two, err := e.summaries.Read(2)
	if err != nil {
		t.Fatalf("Read summary 2: %v", err)
	}
	if two.Predictions == nil || two.Predictions.IncorrectSuccess != 1 {
		t.Errorf("summary 2 predictions = %+v", two.Predictions)
	}

	if len(out.decisions) != 4 {
		t.Fatalf("got %d decisions, want 4 (blank line skipped)", len(out.decisions))
	}
	last := out.decisions[3]
	if last.BayesFactor != 0.75 || last.LikelihoodRatio != 1 || last.Evidence != "uninformative" {
		t.Errorf("last decision = %+v, want uninformative LR 1 and B 0.75", last)
	}
	if out.decisions[0].Chunk != "x00001" || last.Chunk != "x00002" {
		t.Errorf("chunks = %q, %q, want x00001, x00002", out.decisions[0].Chunk, last.Chunk)
	}
	if !out.closed {
		t.Error("Close did not close the output")
	}
}

func TestRunFromSnapshotMatchesInMemory(t *testing.T) {
	results := make([]map[int]model.Summary, 2)
	for i, opts := range [][]Option{nil, {WithRolloverFromSnapshot()}} {
		e := newEnv(t)
		e.train(t)
		if err := e.pipeline(t, classifier.New(0), opts...).Run(context.Background(), 1, 2); err != nil {
			t.Fatalf("Run error: %v", err)
		}
		results[i] = map[int]model.Summary{}
		for _, n := range []int{1, 2} {
			s, err := e.summaries.Read(n)
			if err != nil {
				t.Fatal(err)
			}
			results[i][n] = s
		}
	}
	for _, n := range []int{1, 2} {
		a, b := results[0][n], results[1][n]
		if a.Results != b.Results || *a.Predictions != *b.Predictions {
			t.Errorf("chunk %d: in-memory %+v/%+v, from snapshot %+v/%+v",
				n, a.Results, a.Predictions, b.Results, b.Predictions)
		}
	}
}

func TestRunResumesAcrossProcesses(t *testing.T) {
	e := newEnv(t)
	e.train(t)

	if err := e.pipeline(t, classifier.New(0)).Run(context.Background(), 1, 1); err != nil {
		t.Fatalf("Run 1 error: %v", err)
	}
	// A fresh classifier picks up chunk 1's snapshot and summaries.
	out := &recordingOutput{}
	if err := e.pipeline(t, classifier.New(0), WithOutput(out)).Run(context.Background(), 2, 2); err != nil {
		t.Fatalf("Run 2 error: %v", err)
	}
	if len(out.decisions) != 1 || out.decisions[0].BayesFactor != 0.75 {
		t.Errorf("decisions = %+v", out.decisions)
	}
}

func TestRunRejectsBadRange(t *testing.T) {
	e := newEnv(t)
	p := e.pipeline(t, classifier.New(0))
	for _, r := range [][2]int{{0, 1}, {2, 1}, {-1, 3}} {
		if err := p.Run(context.Background(), r[0], r[1]); err == nil {
			t.Errorf("Run(%d, %d) succeeded, want error", r[0], r[1])
		}
	}
}

func TestRunMissingPreviousSnapshot(t *testing.T) {
	e := newEnv(t)
	if err := e.summaries.Write(0, model.Summary{Results: model.ResultCounts{Success: 1}}); err != nil {
		t.Fatal(err)
	}
	err := e.pipeline(t, classifier.New(0)).Run(context.Background(), 1, 1)
	if !errors.Is(err, snapshot.ErrNotFound) {
		t.Fatalf("error = %v, want snapshot.ErrNotFound", err)
	}
	var se *snapshot.Error
	if !errors.As(err, &se) || se.Chunk != 0 {
		t.Errorf("error = %v, want *snapshot.Error for chunk 0", err)
	}
}

func TestRunAbortsOnParseError(t *testing.T) {
	e := newEnv(t)
	e.train(t)
	bad := "400,u1,p,S\n401,u1,p,maybe\n402,u1,p,S\n"
	if err := os.WriteFile(filepath.Join(e.input, model.ChunkName(1)), []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}

	err := e.pipeline(t, classifier.New(0)).Run(context.Background(), 1, 2)
	var pe *parser.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *parser.ParseError", err)
	}
	if !strings.Contains(err.Error(), "x00001 line 2") {
		t.Errorf("error %q does not locate the bad line", err)
	}
	if _, err := e.summaries.Read(1); !errors.Is(err, summary.ErrNotFound) {
		t.Errorf("summary written for aborted chunk: %v", err)
	}
}

func TestRunLogsSkippedBlankLines(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(logging.NewHandler(&buf, "json", slog.LevelInfo)))
	defer slog.SetDefault(prev)

	e := newEnv(t)
	e.train(t)
	if err := e.pipeline(t, classifier.New(0)).Run(context.Background(), 1, 1); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !strings.Contains(buf.String(), `"msg":"skipped blank lines","chunk":"x00001","lines":[2]`) {
		t.Errorf("blank line not logged:\n%s", buf.String())
	}
}

func TestRunRejectsBlankLines(t *testing.T) {
	e := newEnv(t)
	e.train(t)
	err := e.pipeline(t, classifier.New(0), WithRejectBlankLines()).Run(context.Background(), 1, 2)
	if !errors.Is(err, ErrBlankLine) {
		t.Fatalf("error = %v, want ErrBlankLine", err)
	}
	if !strings.Contains(err.Error(), "x00001 line 2") {
		t.Errorf("error %q does not locate the blank line", err)
	}
	if _, err := e.summaries.Read(1); !errors.Is(err, summary.ErrNotFound) {
		t.Errorf("summary written for aborted chunk: %v", err)
	}
}

func TestRunStopsOnOutputError(t *testing.T) {
	e := newEnv(t)
	e.train(t)
	out := &recordingOutput{failAfter: 1}
	err := e.pipeline(t, classifier.New(0), WithOutput(out)).Run(context.Background(), 1, 2)
	if err == nil || !strings.Contains(err.Error(), "pipeline output") {
		t.Fatalf("error = %v, want output error", err)
	}
}

func TestRunCancelled(t *testing.T) {
	e := newEnv(t)
	e.train(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.pipeline(t, classifier.New(0)).Run(ctx, 1, 2)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestRunMissingChunk(t *testing.T) {
	e := newEnv(t)
	e.train(t)
	err := e.pipeline(t, classifier.New(0)).Run(context.Background(), 1, 3)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want os.ErrNotExist", err)
	}
	// Chunks before the missing one were completed.
	if _, err := e.summaries.Read(2); err != nil {
		t.Errorf("summary 2 missing: %v", err)
	}
}
