package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brandlens/brandlens-workflows/internal/config"
	"github.com/brandlens/brandlens-workflows/internal/models"
	"github.com/brandlens/brandlens-workflows/internal/providers/common"
	"github.com/brandlens/brandlens-workflows/internal/providers/testutil"
)

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		BatchSize:         10,
		StaggerMs:         1500,
		InterBatchDelayMs: 10000,
	}
}

// sleepRecorder captures every scheduler wait without actually sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
	return nil
}

func (r *sleepRecorder) count(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sleeps {
		if s == d {
			n++
		}
	}
	return n
}

func newTestScheduler(invoker Invoker, cfg config.PipelineConfig) (*Scheduler, *sleepRecorder) {
	recorder := &sleepRecorder{}
	s := NewScheduler(invoker, cfg)
	s.sleep = recorder.sleep
	return s, recorder
}

func TestRunRejectsEmptyInput(t *testing.T) {
	s, _ := newTestScheduler(&testutil.MockInvoker{}, testPipelineConfig())

	if _, err := s.Run(context.Background(), nil, testutil.SampleProviderList(), RunContext{}); !errors.Is(err, ErrNoPrompts) {
		t.Errorf("Expected ErrNoPrompts, got %v", err)
	}
	if _, err := s.Run(context.Background(), testutil.SamplePrompts(1), nil, RunContext{}); !errors.Is(err, ErrNoProviders) {
		t.Errorf("Expected ErrNoProviders, got %v", err)
	}
}

func TestRunPartitionsIntoBatches(t *testing.T) {
	invoker := &testutil.MockInvoker{}
	cfg := testPipelineConfig()
	s, recorder := newTestScheduler(invoker, cfg)

	prompts := testutil.SamplePrompts(25)
	providerList := testutil.SampleProviderList()

	results, err := s.Run(context.Background(), prompts, providerList, RunContext{CompanyName: "Acme"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(results) != 25 {
		t.Fatalf("Expected 25 prompt results, got %d", len(results))
	}
	for i, result := range results {
		if result.PromptID != prompts[i].ID {
			t.Errorf("Result %d: expected prompt %s, got %s", i, prompts[i].ID, result.PromptID)
		}
		if len(result.Results) != len(providerList) {
			t.Errorf("Result %d: expected %d provider entries, got %d", i, len(providerList), len(result.Results))
		}
	}

	// 25 prompts at batch size 10 is 3 batches, with a cooldown after the
	// first two only.
	cooldown := time.Duration(cfg.InterBatchDelayMs) * time.Millisecond
	if got := recorder.count(cooldown); got != 2 {
		t.Errorf("Expected 2 inter-batch cooldowns, got %d", got)
	}

	if invoker.CallCount() != 25*len(providerList) {
		t.Errorf("Expected %d invocations, got %d", 25*len(providerList), invoker.CallCount())
	}
}

func TestRunStaggersProviderStarts(t *testing.T) {
	invoker := &testutil.MockInvoker{}
	cfg := testPipelineConfig()
	s, recorder := newTestScheduler(invoker, cfg)

	prompts := testutil.SamplePrompts(3)
	providerList := testutil.SampleProviderList()

	if _, err := s.Run(context.Background(), prompts, providerList, RunContext{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Provider index 1 waits one stagger interval per prompt; index 0 never
	// waits.
	stagger := time.Duration(cfg.StaggerMs) * time.Millisecond
	if got := recorder.count(stagger); got != len(prompts) {
		t.Errorf("Expected %d stagger waits of %s, got %d", len(prompts), stagger, got)
	}
}

func TestRunKeepsProviderSlotsOnFailure(t *testing.T) {
	invoker := &testutil.MockInvoker{
		InvokeFunc: func(providerID, promptText string) (*common.RawResponse, error) {
			if providerID == "p2" && promptText == "question one" {
				return nil, &common.ProviderError{Provider: "p2", StatusCode: 500, Message: "server error"}
			}
			return &common.RawResponse{Response: "answer from " + providerID}, nil
		},
	}
	s, _ := newTestScheduler(invoker, testPipelineConfig())

	prompts := []models.Prompt{
		{ID: "q1", Text: "question one"},
		{ID: "q2", Text: "question two"},
	}
	providerList := testutil.SampleProviderList()

	results, err := s.Run(context.Background(), prompts, providerList, RunContext{CompanyName: "Acme"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i, result := range results {
		for k, entry := range result.Results {
			if entry.Provider != providerList[k].ID {
				t.Errorf("Result %d slot %d: expected provider %s, got %s", i, k, providerList[k].ID, entry.Provider)
			}
		}
	}

	if results[0].Results[1].Error == "" {
		t.Error("Expected an error entry for p2 on the first prompt")
	}
	if results[0].Results[0].Error != "" {
		t.Error("Expected p1 to succeed on the first prompt")
	}
	if results[1].Results[1].Error != "" {
		t.Error("Expected p2 to succeed on the second prompt")
	}
	if results[1].Results[1].Response != "answer from p2" {
		t.Errorf("Unexpected response: %q", results[1].Results[1].Response)
	}
}

func TestRunPassesBrandContextAndCapabilities(t *testing.T) {
	invoker := &testutil.MockInvoker{}
	s, _ := newTestScheduler(invoker, testPipelineConfig())

	prompts := testutil.SamplePrompts(1)
	providerList := testutil.SampleProviderList()
	runCtx := RunContext{CompanyName: "Acme", Competitors: []string{"Globex", "Initech"}}

	if _, err := s.Run(context.Background(), prompts, providerList, runCtx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, call := range invoker.Calls() {
		if call.Opts.BrandName != "Acme" {
			t.Errorf("Expected brand name in options, got %q", call.Opts.BrandName)
		}
		if len(call.Opts.Competitors) != 2 {
			t.Errorf("Expected 2 competitors in options, got %v", call.Opts.Competitors)
		}
		switch call.ProviderID {
		case "p1":
			if !call.Opts.WebSearch {
				t.Error("Expected web search enabled for p1")
			}
		case "p2":
			if call.Opts.WebSearch {
				t.Error("Expected web search disabled for p2")
			}
		default:
			t.Errorf("Unexpected provider id %s", call.ProviderID)
		}
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	invoker := &testutil.MockInvoker{}
	ctx, cancel := context.WithCancel(context.Background())

	s, _ := newTestScheduler(invoker, testPipelineConfig())
	s.sleep = func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}
	// Cancel while the first batch is in flight.
	var once sync.Once
	invoker.InvokeFunc = func(providerID, promptText string) (*common.RawResponse, error) {
		once.Do(cancel)
		return &common.RawResponse{Response: "ok"}, nil
	}

	prompts := testutil.SamplePrompts(15)
	_, err := s.Run(ctx, prompts, testutil.SampleProviderList(), RunContext{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRunBatchCountMatchesCeil(t *testing.T) {
	tests := []struct {
		prompts   int
		batchSize int
		cooldowns int
	}{
		{1, 10, 0},
		{10, 10, 0},
		{11, 10, 1},
		{30, 10, 2},
		{7, 3, 2},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_prompts_batch_%d", tt.prompts, tt.batchSize), func(t *testing.T) {
			cfg := testPipelineConfig()
			cfg.BatchSize = tt.batchSize
			s, recorder := newTestScheduler(&testutil.MockInvoker{}, cfg)

			results, err := s.Run(context.Background(), testutil.SamplePrompts(tt.prompts), testutil.SampleProviderList(), RunContext{})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if len(results) != tt.prompts {
				t.Errorf("Expected %d results, got %d", tt.prompts, len(results))
			}

			cooldown := time.Duration(cfg.InterBatchDelayMs) * time.Millisecond
			if got := recorder.count(cooldown); got != tt.cooldowns {
				t.Errorf("Expected %d cooldowns, got %d", tt.cooldowns, got)
			}
		})
	}
}
