package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
	"github.com/custodia-labs/clausewise/internal/logger"
)

// Generation defaults.
const (
	DefaultAnswerMaxTokens  = 1024
	DefaultSummaryMaxTokens = 2048
	DefaultTemperature      = 0.2
)

// GenerationRouter phrases answers with a fast local model and falls back
// to a remote model when the local one misses its deadline or fails.
type GenerationRouter struct {
	local            driven.LLMService
	remote           driven.LLMService
	prompts          driven.PromptStore
	localTimeout     time.Duration
	localForFallback bool
	limiter          *rate.Limiter
}

// NewGenerationRouter creates a router. Either model may be nil; with both
// nil every call fails with domain.ErrGenerationUnavailable.
func NewGenerationRouter(
	local, remote driven.LLMService,
	prompts driven.PromptStore,
	cfg domain.GenerationSettings,
) *GenerationRouter {
	if cfg.LocalTimeout <= 0 {
		cfg.LocalTimeout = domain.DefaultLocalTimeout
	}
	r := &GenerationRouter{
		local:            local,
		remote:           remote,
		prompts:          prompts,
		localTimeout:     cfg.LocalTimeout,
		localForFallback: cfg.LocalForFallback,
	}
	if cfg.RemoteRPS > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RemoteRPS), max(1, cfg.RemoteBurst))
	}
	return r
}

// Available returns true if at least one model is configured.
func (r *GenerationRouter) Available() bool {
	return r.local != nil || r.remote != nil
}

// Answer phrases an answer to question. With a non-empty clause the model
// is told to answer strictly from it; with an empty clause it answers from
// general knowledge.
func (r *GenerationRouter) Answer(ctx context.Context, clause, question string) (string, error) {
	if strings.TrimSpace(clause) == "" {
		tmpl, err := r.prompt(driven.PromptGeneralAnswer)
		if err != nil {
			return "", err
		}
		return r.route(ctx, fmt.Sprintf(tmpl, question), r.localForFallback, DefaultAnswerMaxTokens)
	}
	tmpl, err := r.prompt(driven.PromptGroundedAnswer)
	if err != nil {
		return "", err
	}
	return r.route(ctx, fmt.Sprintf(tmpl, clause, question), true, DefaultAnswerMaxTokens)
}

// Summarise summarises a whole document with the document as context.
func (r *GenerationRouter) Summarise(ctx context.Context, document string) (string, error) {
	tmpl, err := r.prompt(driven.PromptSummarise)
	if err != nil {
		return "", err
	}
	return r.route(ctx, fmt.Sprintf(tmpl, document), true, DefaultSummaryMaxTokens)
}

func (r *GenerationRouter) prompt(name string) (string, error) {
	if r.prompts == nil {
		return "", fmt.Errorf("prompt %s: no prompt store configured", name)
	}
	tmpl, err := r.prompts.Load(name)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	return tmpl, nil
}

func (r *GenerationRouter) route(ctx context.Context, prompt string, tryLocal bool, maxTokens int) (string, error) {
	opts := driven.GenerateOptions{MaxTokens: maxTokens, Temperature: DefaultTemperature}

	var localErr error
	if tryLocal && r.local != nil {
		out, err := r.generateLocal(ctx, prompt, opts)
		if err == nil {
			return out, nil
		}
		// Caller went away: do not start a remote call nobody will read.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		localErr = err
		logger.Warn("Local model %s failed, falling back to remote: %v", r.local.ModelName(), err)
	}

	if r.remote == nil {
		if localErr != nil {
			return "", fmt.Errorf("%w: local: %w", domain.ErrGenerationUnavailable, localErr)
		}
		if r.local != nil {
			// Context-free call with only a local model configured.
			out, err := r.generateLocal(ctx, prompt, opts)
			if err != nil {
				return "", fmt.Errorf("%w: local: %w", domain.ErrGenerationUnavailable, err)
			}
			return out, nil
		}
		return "", fmt.Errorf("%w: no model configured", domain.ErrGenerationUnavailable)
	}

	out, err := r.generateRemote(ctx, prompt, opts)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if localErr != nil {
			return "", fmt.Errorf("%w: local: %v; remote: %w", domain.ErrGenerationUnavailable, localErr, err)
		}
		return "", fmt.Errorf("%w: remote: %w", domain.ErrGenerationUnavailable, err)
	}
	return out, nil
}

// generateLocal runs the local model under a hard deadline. The derived
// context is cancelled before returning so the call is torn down before
// any remote attempt starts.
func (r *GenerationRouter) generateLocal(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	start := time.Now()
	localCtx, cancel := context.WithTimeout(ctx, r.localTimeout)
	defer cancel()

	out, err := r.local.Generate(localCtx, prompt, opts)
	logger.Timing("local generation", start)
	// A reply that lands after the deadline is discarded.
	if errors.Is(localCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("local model exceeded %s: %w", r.localTimeout, context.DeadlineExceeded)
	}
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("local model returned empty output")
	}
	logger.Debug("Answer generated by local model %s", r.local.ModelName())
	return out, nil
}

func (r *GenerationRouter) generateRemote(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}
	start := time.Now()
	out, err := r.remote.Generate(ctx, prompt, opts)
	logger.Timing("remote generation", start)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("remote model returned empty output")
	}
	logger.Debug("Answer generated by remote model %s", r.remote.ModelName())
	return out, nil
}
