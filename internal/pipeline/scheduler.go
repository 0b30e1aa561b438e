package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/brandlens/brandlens-workflows/internal/config"
	"github.com/brandlens/brandlens-workflows/internal/models"
	"github.com/brandlens/brandlens-workflows/internal/providers/common"
)

var (
	// ErrNoPrompts is returned when a run is requested with nothing to ask.
	ErrNoPrompts = errors.New("no prompts to run")
	// ErrNoProviders is returned instead of silently running zero work.
	ErrNoProviders = errors.New("no providers configured")
)

// RunContext is the read-only brand context shared by every call in a run.
type RunContext struct {
	CompanyName string
	Competitors []string
}

// Scheduler fans prompts out across providers in fixed-size batches. Within a
// batch every prompt runs concurrently, and for each prompt every provider
// runs concurrently with a staggered start so no provider sees a simultaneous
// burst. Batches are strictly sequential with a cooldown in between; that is a
// deliberate throughput throttle, not a correctness requirement.
type Scheduler struct {
	invoker         Invoker
	batchSize       int
	stagger         time.Duration
	interBatchDelay time.Duration
	providerRPM     int

	sleep func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewScheduler builds a scheduler from the pipeline tuning config. The
// invoker is expected to carry its own retry policy (see NewRetryInvoker).
func NewScheduler(invoker Invoker, cfg config.PipelineConfig) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Scheduler{
		invoker:         invoker,
		batchSize:       batchSize,
		stagger:         time.Duration(cfg.StaggerMs) * time.Millisecond,
		interBatchDelay: time.Duration(cfg.InterBatchDelayMs) * time.Millisecond,
		providerRPM:     cfg.ProviderRPM,
		sleep:           sleepContext,
		limiters:        make(map[string]*rate.Limiter),
	}
}

// Run executes every prompt against every provider and returns one
// PromptResult per prompt, in prompt order, each holding one ProviderResult
// per provider in configured provider order. Individual provider failures are
// captured as error entries; Run itself fails only on invalid input or
// context cancellation.
func (s *Scheduler) Run(ctx context.Context, prompts []models.Prompt, providerList []models.ProviderDescriptor, runCtx RunContext) ([]models.PromptResult, error) {
	if len(prompts) == 0 {
		return nil, ErrNoPrompts
	}
	if len(providerList) == 0 {
		return nil, ErrNoProviders
	}

	totalBatches := (len(prompts) + s.batchSize - 1) / s.batchSize
	fmt.Printf("[BatchScheduler] Processing %d prompts across %d providers in %d batches\n",
		len(prompts), len(providerList), totalBatches)

	allResults := make([]models.PromptResult, 0, len(prompts))

	for start := 0; start < len(prompts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(prompts) {
			end = len(prompts)
		}
		batch := prompts[start:end]
		batchNum := start/s.batchSize + 1

		fmt.Printf("[BatchScheduler] 🚀 Batch %d/%d: %d prompts\n", batchNum, totalBatches, len(batch))

		batchResults := make([]models.PromptResult, len(batch))
		var wg sync.WaitGroup
		for i, prompt := range batch {
			wg.Add(1)
			go func(i int, prompt models.Prompt) {
				defer wg.Done()
				batchResults[i] = s.runPrompt(ctx, prompt, providerList, runCtx)
			}(i, prompt)
		}
		wg.Wait()

		allResults = append(allResults, batchResults...)

		if err := ctx.Err(); err != nil {
			return allResults, err
		}

		if end < len(prompts) {
			fmt.Printf("[BatchScheduler] 💤 Cooling down %s before batch %d\n", s.interBatchDelay, batchNum+1)
			if err := s.sleep(ctx, s.interBatchDelay); err != nil {
				return allResults, err
			}
		}
	}

	fmt.Printf("[BatchScheduler] ✅ Completed %d prompt results\n", len(allResults))
	return allResults, nil
}

// runPrompt invokes every provider for one prompt concurrently. Results are
// written by provider index, so the output order always matches the
// configured provider list regardless of completion order.
func (s *Scheduler) runPrompt(ctx context.Context, prompt models.Prompt, providerList []models.ProviderDescriptor, runCtx RunContext) models.PromptResult {
	results := make([]models.ProviderResult, len(providerList))

	var wg sync.WaitGroup
	for k, provider := range providerList {
		wg.Add(1)
		go func(k int, provider models.ProviderDescriptor) {
			defer wg.Done()
			results[k] = s.invokeProvider(ctx, k, prompt, provider, runCtx)
		}(k, provider)
	}
	wg.Wait()

	return models.PromptResult{
		PromptID: prompt.ID,
		Prompt:   prompt.Text,
		TopicID:  prompt.TopicID,
		Results:  results,
	}
}

func (s *Scheduler) invokeProvider(ctx context.Context, k int, prompt models.Prompt, provider models.ProviderDescriptor, runCtx RunContext) models.ProviderResult {
	// Stagger by position in the configured provider list, counted from the
	// moment this prompt's processing starts.
	if wait := time.Duration(k) * s.stagger; wait > 0 {
		if err := s.sleep(ctx, wait); err != nil {
			return NormalizeError(err, provider.ID)
		}
	}

	if limiter := s.limiterFor(provider.ID); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return NormalizeError(err, provider.ID)
		}
	}

	opts := common.InvokeOptions{
		BrandName:   runCtx.CompanyName,
		Competitors: runCtx.Competitors,
		WebSearch:   provider.Capabilities.WebSearch,
	}

	raw, err := s.invoker.Invoke(ctx, provider.ID, prompt.Text, opts)
	if err != nil {
		fmt.Printf("[BatchScheduler] ⚠️ %s failed for prompt %s: %v\n", provider.ID, prompt.ID, err)
		return NormalizeError(err, provider.ID)
	}

	return Normalize(raw, provider.ID)
}

// limiterFor returns the shared token bucket for a provider when PROVIDER_RPM
// is configured, nil otherwise.
func (s *Scheduler) limiterFor(providerID string) *rate.Limiter {
	if s.providerRPM <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[providerID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(s.providerRPM)/60.0), 1)
		s.limiters[providerID] = limiter
	}
	return limiter
}
