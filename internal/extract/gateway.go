// Package extract drives the two-stage per-file pipeline: first-page text
// extraction, then LLM analysis with credential rotation and bounded retries.
package extract

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/litscan/litscan/internal/config"
	"github.com/litscan/litscan/internal/credential"
	"github.com/litscan/litscan/internal/model"
	"github.com/litscan/litscan/internal/ocr"
	"github.com/litscan/litscan/internal/resilience"
	"github.com/litscan/litscan/pkg/claude"
)

// Gateway wraps PDF text extraction and LLM analysis behind a single
// Process call with a uniform error taxonomy.
type Gateway struct {
	extractor     ocr.Extractor
	pool          *credential.Pool
	prompt        *config.Prompt
	model         string
	maxTokens     int64
	parseAttempts int
	retryCfg      resilience.RetryConfig
	limiter       *rate.Limiter
}

// NewGateway builds a Gateway from configuration. Retry bounds, parse
// attempts, and request pacing all come from cfg rather than constants.
func NewGateway(extractor ocr.Extractor, pool *credential.Pool, prompt *config.Prompt, cfg *config.Config) *Gateway {
	parseAttempts := cfg.Extract.ParseAttempts
	if parseAttempts <= 0 {
		parseAttempts = 2
	}

	var limiter *rate.Limiter
	if rpm := cfg.Extract.RequestsPerMinute; rpm > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}

	retryCfg := resilience.FromConfig(cfg.Retry)
	retryCfg.ShouldRetry = retrySameCredential
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "create_message")

	return &Gateway{
		extractor:     extractor,
		pool:          pool,
		prompt:        prompt,
		model:         cfg.Anthropic.Model,
		maxTokens:     cfg.Anthropic.MaxTokens,
		parseAttempts: parseAttempts,
		retryCfg:      retryCfg,
		limiter:       limiter,
	}
}

// retrySameCredential decides whether an API error is worth retrying with the
// credential that just failed. Rate-limit and auth rejections are excluded:
// those trigger rotation instead.
func retrySameCredential(err error) bool {
	if claude.IsRateLimited(err) || claude.IsAuthError(err) {
		return false
	}
	if sc := claude.StatusCode(err); sc != 0 {
		return resilience.IsTransientHTTPStatus(sc)
	}
	return resilience.IsTransient(err)
}

// Process runs the two-stage pipeline for one file. Failures come back as
// *Error; callers check IsFatal to distinguish run-fatal credential
// exhaustion from per-file failures.
func (g *Gateway) Process(ctx context.Context, file *model.PaperFile) (*model.Record, error) {
	log := zap.L().With(zap.String("file", file.Key().String()))

	// Text stage. An empty first page never reaches the API.
	text, err := g.extractor.ExtractFirstPage(ctx, file.Path)
	if err != nil {
		return nil, &Error{Stage: StageText, Cause: CauseIoError, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &Error{Stage: StageText, Cause: CauseEmptyPage}
	}

	userMsg := g.prompt.UserPrefix + truncate(text, g.prompt.MaxInputChars)

	// Analysis stage: at most one attempt per credential in the pool, plus a
	// bounded same-credential re-ask when the response fails to parse.
	rotations := 0
	parseTries := 0
	for {
		cred := g.pool.Current()

		resp, err := g.callModel(ctx, cred, userMsg)
		if err != nil {
			if claude.IsRateLimited(err) || claude.IsAuthError(err) {
				reason := credential.ReasonRateLimited
				if claude.IsAuthError(err) {
					reason = credential.ReasonAuthError
				}

				rotations++
				if rotations >= g.pool.Size() {
					return nil, &Error{Stage: StageAnalysis, Cause: CauseCredentialsExhausted, Err: err}
				}
				if _, rerr := g.pool.Rotate(reason); rerr != nil {
					return nil, &Error{Stage: StageAnalysis, Cause: CauseCredentialsExhausted, Err: rerr}
				}
				continue
			}
			return nil, &Error{Stage: StageAnalysis, Cause: CauseAPIError, Err: err}
		}

		resp.Usage.LogUsage(resp.Model, "analysis")

		rec, perr := parseRecord(resp.Text())
		if perr != nil {
			parseTries++
			if parseTries >= g.parseAttempts {
				return nil, &Error{Stage: StageAnalysis, Cause: CauseSchemaMismatch, Err: perr}
			}
			log.Warn("unparseable response, re-asking", zap.Error(perr))
			continue
		}

		rec.Source = file.Key()
		return rec, nil
	}
}

// callModel paces the request and invokes the API with bounded retries for
// transient errors on the current credential.
func (g *Gateway) callModel(ctx context.Context, cred *credential.Credential, userMsg string) (*claude.MessageResponse, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return resilience.DoVal(ctx, g.retryCfg, func(ctx context.Context) (*claude.MessageResponse, error) {
		return cred.Client.CreateMessage(ctx, claude.MessageRequest{
			Model:     g.model,
			MaxTokens: g.maxTokens,
			System:    g.prompt.System,
			Messages:  []claude.Message{{Role: "user", Content: userMsg}},
		})
	})
}

// truncate caps s at max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
