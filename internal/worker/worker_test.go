package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven/mocks"
)

// stubAnalysis records Analyze calls and returns a configured result
type stubAnalysis struct {
	mu      sync.Mutex
	calls   []string
	err     error
	partial *domain.PartialResult
}

func (s *stubAnalysis) Analyze(ctx context.Context, documentID string, analysisType domain.AnalysisType) (*domain.AnalysisReport, *domain.PartialResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, documentID)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.partial, s.err
	}
	return &domain.AnalysisReport{ReportID: "r", RunID: "ru", DocumentID: documentID}, nil, nil
}

func (s *stubAnalysis) AnalyzeAsync(ctx context.Context, documentID string, analysisType domain.AnalysisType) (string, error) {
	return "", errors.New("not supported")
}

func (s *stubAnalysis) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestNew_Defaults(t *testing.T) {
	w := New(Config{
		TaskQueue:      mocks.NewMockTaskQueue(),
		Analysis:       &stubAnalysis{},
		Concurrency:    0,
		DequeueTimeout: 0,
	})

	if w.concurrency != 1 {
		t.Errorf("expected default concurrency 1, got %d", w.concurrency)
	}
	if w.dequeueTimeout != 5 {
		t.Errorf("expected default dequeue timeout 5, got %d", w.dequeueTimeout)
	}
	if w.logger == nil {
		t.Error("expected default logger")
	}
}

func TestWorker_StartStop(t *testing.T) {
	w := New(Config{
		TaskQueue:   mocks.NewMockTaskQueue(),
		Analysis:    &stubAnalysis{},
		Concurrency: 2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	health := w.Health(ctx)
	if !health.Running {
		t.Error("expected worker to be running")
	}

	// Second start is a no-op
	if err := w.Start(ctx); err != nil {
		t.Errorf("second start should not error: %v", err)
	}

	w.Stop()

	health = w.Health(ctx)
	if health.Running {
		t.Error("expected worker to be stopped")
	}

	w.Stop() // Should not panic
}

func TestWorker_ProcessTask_Success(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	analysis := &stubAnalysis{}

	w := New(Config{TaskQueue: queue, Analysis: analysis})

	task := domain.NewAnalyzeTask("doc-1", domain.AnalysisContractReview)
	w.processTask(context.Background(), task, w.logger)

	if analysis.callCount() != 1 {
		t.Fatalf("expected 1 analysis call, got %d", analysis.callCount())
	}
	acked := queue.Acked()
	if len(acked) != 1 || acked[0] != task.ID {
		t.Errorf("expected task acked, got %v", acked)
	}
}

func TestWorker_ProcessTask_FailureNacks(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	analysis := &stubAnalysis{err: errors.New("generator down")}

	w := New(Config{TaskQueue: queue, Analysis: analysis})

	task := domain.NewAnalyzeTask("doc-1", domain.AnalysisContractReview)
	if err := queue.Enqueue(context.Background(), task); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	dequeued, err := queue.DequeueWithTimeout(context.Background(), 1)
	if err != nil || dequeued == nil {
		t.Fatalf("expected dequeued task, got %v, %v", dequeued, err)
	}

	w.processTask(context.Background(), dequeued, w.logger)

	if len(queue.Acked()) != 0 {
		t.Error("failed task must not be acked")
	}
	// the mock re-queues nacked tasks that still have attempts
	requeued, err := queue.DequeueWithTimeout(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requeued == nil || requeued.ID != task.ID {
		t.Errorf("expected task requeued for retry, got %+v", requeued)
	}
}

func TestWorker_ProcessTask_UnknownTypeNacks(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	analysis := &stubAnalysis{}

	w := New(Config{TaskQueue: queue, Analysis: analysis})

	task := domain.NewAnalyzeTask("doc-1", domain.AnalysisContractReview)
	task.Type = "reindex_corpus"
	if err := queue.Enqueue(context.Background(), task); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	dequeued, _ := queue.DequeueWithTimeout(context.Background(), 1)

	w.processTask(context.Background(), dequeued, w.logger)

	if analysis.callCount() != 0 {
		t.Error("unknown task type must not reach the analysis service")
	}
	if len(queue.Acked()) != 0 {
		t.Error("unknown task type must not be acked")
	}
}

func TestWorker_ProcessTask_MissingDocumentID(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	analysis := &stubAnalysis{}

	w := New(Config{TaskQueue: queue, Analysis: analysis})

	task := domain.NewAnalyzeTask("", domain.AnalysisContractReview)
	task.Payload = map[string]string{}
	if err := queue.Enqueue(context.Background(), task); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	dequeued, _ := queue.DequeueWithTimeout(context.Background(), 1)

	w.processTask(context.Background(), dequeued, w.logger)

	if analysis.callCount() != 0 {
		t.Error("task without document ID must not reach the analysis service")
	}
}

func TestWorker_DrainsQueue(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	analysis := &stubAnalysis{}

	for i := 0; i < 3; i++ {
		task := domain.NewAnalyzeTask("doc-1", domain.AnalysisContractReview)
		if err := queue.Enqueue(context.Background(), task); err != nil {
			t.Fatalf("unexpected enqueue error: %v", err)
		}
	}

	w := New(Config{TaskQueue: queue, Analysis: analysis, Concurrency: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for analysis.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("queue not drained, %d calls", analysis.callCount())
		case <-time.After(10 * time.Millisecond):
		}
	}

	w.Stop()

	if len(queue.Acked()) != 3 {
		t.Errorf("expected 3 acked tasks, got %d", len(queue.Acked()))
	}
}
