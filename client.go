package featureflagshq

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/featureflagshq/featureflagshq-go/internal/cache"
	"github.com/featureflagshq/featureflagshq-go/internal/circuit"
	"github.com/featureflagshq/featureflagshq-go/internal/domain"
	"github.com/featureflagshq/featureflagshq-go/internal/evaluator"
	"github.com/featureflagshq/featureflagshq-go/internal/ratelimit"
	"github.com/featureflagshq/featureflagshq-go/internal/stats"
	"github.com/featureflagshq/featureflagshq-go/internal/telemetry"
	"github.com/featureflagshq/featureflagshq-go/internal/transport"
)

// Client is a FeatureFlagsHQ SDK instance. It keeps all flags in an
// in-memory snapshot refreshed in the background, evaluates them locally,
// and uploads access analytics in batches. All methods are safe for
// concurrent use.
type Client struct {
	cfg       Config
	logger    zerolog.Logger
	sessionID string
	startedAt time.Time

	store     *cache.Store
	eval      *evaluator.Evaluator
	breaker   *circuit.Breaker
	limiter   *ratelimit.Limiter
	tracker   *stats.Tracker
	transport transport.Transport
	telemetry *telemetry.Provider

	onFlagChange ChangeHandler

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
	droppedSeen  atomic.Int64
}

// New creates a client and starts its background workers. The initial flag
// fetch is attempted synchronously, bounded by InitialTimeout; if it fails
// the client still starts and serves defaults until a refresh succeeds.
func New(opts ...Option) (*Client, error) {
	cc := &clientConfig{
		cfg:    DefaultConfig(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		if err := opt(cc); err != nil {
			return nil, err
		}
	}

	requireCredentials := cc.transport == nil && !cc.cfg.OfflineMode
	if err := cc.cfg.Validate(requireCredentials); err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	logger := cc.logger.With().
		Str("component", "featureflagshq").
		Str("session_id", sessionID).
		Logger()

	tel, err := telemetry.New()
	if err != nil {
		return nil, err
	}

	eval, err := evaluator.New()
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:       cc.cfg,
		logger:    logger,
		sessionID: sessionID,
		startedAt: time.Now().UTC(),
		store:     cache.NewStore(),
		eval:      eval,
		telemetry: tel,
		limiter: ratelimit.New(ratelimit.Config{
			Limit:    cc.cfg.RateLimitPerUser,
			Window:   cc.cfg.RateLimitWindow,
			MaxUsers: cc.cfg.MaxTrackedUsers,
		}),
		tracker: stats.New(stats.Config{
			MaxUsers:      cc.cfg.MaxTrackedUsers,
			MaxFlags:      cc.cfg.MaxTrackedFlags,
			QueueCapacity: cc.cfg.MaxPendingLogs,
		}),
		onFlagChange: cc.onFlagChange,
	}

	c.breaker = circuit.New(circuit.Config{
		FailureThreshold: cc.cfg.CircuitThreshold,
		ResetTimeout:     cc.cfg.CircuitResetTimeout,
		OnStateChange: func(from, to circuit.State) {
			tel.RecordCircuitState(to.String())
			logger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	c.transport = cc.transport
	if c.transport == nil && !cc.cfg.OfflineMode {
		c.transport = transport.NewHTTPTransport(transport.Config{
			BaseURL:       cc.cfg.BaseURL,
			ClientID:      cc.cfg.ClientID,
			ClientSecret:  cc.cfg.ClientSecret,
			Environment:   cc.cfg.Environment,
			SessionID:     sessionID,
			SDKVersion:    Version,
			Timeout:       cc.cfg.RequestTimeout,
			MaxRetries:    cc.cfg.MaxRetries,
			CustomHeaders: cc.cfg.CustomHeaders,
			Logger:        logger,
		})
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())

	if !c.cfg.OfflineMode {
		initCtx, cancel := context.WithTimeout(c.ctx, c.cfg.InitialTimeout)
		if err := c.refresh(initCtx); err != nil {
			logger.Warn().Err(err).Msg("initial flag fetch failed, serving defaults until refresh")
		}
		cancel()

		c.startBackground()
	} else {
		logger.Info().Msg("running in offline mode")
	}

	return c, nil
}

// Get evaluates a flag and returns its native value, or defaultValue when
// the flag does not apply. Evaluation never returns an error: invalid
// input, rate limiting, unknown flags and targeting misses all degrade to
// defaultValue.
func (c *Client) Get(ctx context.Context, userID, flagKey string, defaultValue any, segments map[string]any) any {
	value, matched := c.resolve(ctx, userID, flagKey, defaultValue, segments)
	if !matched {
		return defaultValue
	}
	return value.Any()
}

// GetBool evaluates a flag as a boolean.
func (c *Client) GetBool(ctx context.Context, userID, flagKey string, defaultValue bool, segments map[string]any) bool {
	value, matched := c.resolve(ctx, userID, flagKey, defaultValue, segments)
	if !matched {
		return defaultValue
	}
	b, ok := value.AsBool()
	if !ok {
		c.recordCoercionFailure(flagKey, "bool")
		return defaultValue
	}
	return b
}

// GetString evaluates a flag as a string. Non-string values stringify.
func (c *Client) GetString(ctx context.Context, userID, flagKey string, defaultValue string, segments map[string]any) string {
	value, matched := c.resolve(ctx, userID, flagKey, defaultValue, segments)
	if !matched {
		return defaultValue
	}
	s, ok := value.AsString()
	if !ok {
		c.recordCoercionFailure(flagKey, "string")
		return defaultValue
	}
	return s
}

// GetInt evaluates a flag as an integer. Float values truncate.
func (c *Client) GetInt(ctx context.Context, userID, flagKey string, defaultValue int, segments map[string]any) int {
	value, matched := c.resolve(ctx, userID, flagKey, defaultValue, segments)
	if !matched {
		return defaultValue
	}
	n, ok := value.AsInt()
	if !ok {
		c.recordCoercionFailure(flagKey, "int")
		return defaultValue
	}
	return int(n)
}

// GetFloat evaluates a flag as a float.
func (c *Client) GetFloat(ctx context.Context, userID, flagKey string, defaultValue float64, segments map[string]any) float64 {
	value, matched := c.resolve(ctx, userID, flagKey, defaultValue, segments)
	if !matched {
		return defaultValue
	}
	f, ok := value.AsFloat()
	if !ok {
		c.recordCoercionFailure(flagKey, "float")
		return defaultValue
	}
	return f
}

// GetJSON evaluates a flag as a decoded JSON document.
func (c *Client) GetJSON(ctx context.Context, userID, flagKey string, defaultValue any, segments map[string]any) any {
	value, matched := c.resolve(ctx, userID, flagKey, defaultValue, segments)
	if !matched {
		return defaultValue
	}
	doc, ok := value.AsJSON()
	if !ok {
		c.recordCoercionFailure(flagKey, "json")
		return defaultValue
	}
	return doc
}

// IsEnabled reports whether a boolean flag resolves to true for the user.
func (c *Client) IsEnabled(ctx context.Context, userID, flagKey string, segments map[string]any) bool {
	return c.GetBool(ctx, userID, flagKey, false, segments)
}

// resolve runs the shared evaluation pipeline. The second return reports
// whether the flag actually resolved, as opposed to falling back; callers
// must use their own default when it is false. defaultValue is only taken
// for the access log.
func (c *Client) resolve(ctx context.Context, userID, flagKey string, defaultValue any, segments map[string]any) (domain.FlagValue, bool) {
	start := time.Now()

	uid, err := domain.ValidateUserID(userID)
	if err != nil {
		c.tracker.RecordInvalidInput()
		c.telemetry.RecordInvalidInput(ctx)
		c.logger.Debug().Err(err).Msg("evaluation rejected: invalid user ID")
		return domain.FlagValue{}, false
	}

	key, err := domain.ValidateFlagKey(flagKey)
	if err != nil {
		c.tracker.RecordInvalidInput()
		c.telemetry.RecordInvalidInput(ctx)
		c.logger.Debug().Err(err).Msg("evaluation rejected: invalid flag key")
		return domain.FlagValue{}, false
	}

	segs := domain.SanitizeSegments(segments)

	ctx, span := c.telemetry.StartSpan(ctx, "featureflagshq.get",
		attribute.String("flag.key", key),
	)
	defer span.End()

	if !c.limiter.Allow(uid) {
		c.telemetry.RecordBlocked(ctx, key)
		c.recordAccess(uid, key, "", domain.OutcomeBlocked, defaultValue, "rate_limited", segs, time.Since(start), false, false)
		return domain.FlagValue{}, false
	}

	flag, found := c.store.Current().Lookup(key)
	if !found {
		elapsed := time.Since(start)
		c.recordAccess(uid, key, "", domain.OutcomeDefault, defaultValue, "flag_not_found", segs, elapsed, false, false)
		c.telemetry.RecordEvaluation(ctx, key, "default", elapsed)
		return domain.FlagValue{}, false
	}

	res := c.eval.Evaluate(flag, uid, segs)
	elapsed := time.Since(start)

	if !res.Matched {
		c.recordAccess(uid, key, flag.Kind.String(), domain.OutcomeDefault, defaultValue, res.Reason, segs, elapsed, res.SegmentMatched, res.RolloutEvaluated)
		c.telemetry.RecordEvaluation(ctx, key, "default", elapsed)
		return domain.FlagValue{}, false
	}

	c.recordAccess(uid, key, flag.Kind.String(), domain.OutcomeResolved, res.Value.Any(), res.Reason, segs, elapsed, res.SegmentMatched, res.RolloutEvaluated)
	c.telemetry.RecordEvaluation(ctx, key, "resolved", elapsed)
	return res.Value, true
}

func (c *Client) recordAccess(userID, flagKey, kind string, outcome domain.AccessOutcome, value any, reason string, segments map[string]any, elapsed time.Duration, segmentMatched, rolloutEvaluated bool) {
	entry := domain.AccessLogEntry{
		RequestID:      uuid.NewString(),
		SessionID:      c.sessionID,
		UserID:         userID,
		FlagKey:        flagKey,
		Value:          value,
		Kind:           kind,
		Outcome:        outcome,
		Reason:         reason,
		Segments:       domain.RedactSegments(segments),
		EvaluationTime: float64(elapsed.Microseconds()) / 1000.0,
		Timestamp:      time.Now().UTC(),
	}
	c.tracker.RecordAccess(entry, segmentMatched, rolloutEvaluated, c.cfg.EnableAnalytics)
}

func (c *Client) recordCoercionFailure(flagKey, wantType string) {
	c.tracker.RecordCoercionError()
	c.logger.Debug().
		Str("flag", flagKey).
		Str("want_type", wantType).
		Msg("flag value does not coerce to requested type, using default")
}

// GetUserFlags evaluates every cached flag (or the given subset) for one
// user and returns the resolved values. Unmatched flags yield their typed
// zero value. This path bypasses rate limiting and access logging.
func (c *Client) GetUserFlags(ctx context.Context, userID string, segments map[string]any, flagKeys ...string) map[string]any {
	uid, err := domain.ValidateUserID(userID)
	if err != nil {
		c.tracker.RecordInvalidInput()
		return map[string]any{}
	}
	segs := domain.SanitizeSegments(segments)
	snap := c.store.Current()

	out := map[string]any{}
	evaluate := func(flag *domain.Flag) {
		res := c.eval.Evaluate(flag, uid, segs)
		out[flag.Key] = res.Value.Any()
	}

	if len(flagKeys) > 0 {
		for _, key := range flagKeys {
			if flag, ok := snap.Lookup(key); ok {
				evaluate(flag)
			}
		}
		return out
	}

	snap.Range(func(flag *domain.Flag) bool {
		evaluate(flag)
		return true
	})
	return out
}

// GetAllFlags returns a configuration summary of every cached flag.
func (c *Client) GetAllFlags() map[string]FlagSummary {
	snap := c.store.Current()
	out := make(map[string]FlagSummary, snap.Len())

	snap.Range(func(flag *domain.Flag) bool {
		out[flag.Key] = FlagSummary{
			Key:               flag.Key,
			Type:              flag.Kind.String(),
			Active:            flag.Active,
			RolloutPercentage: flag.RolloutPercentage,
			HasTargeting:      flag.HasRules(),
			Version:           flag.Version,
			UpdatedAt:         flag.UpdatedAt,
		}
		return true
	})
	return out
}

// RefreshFlags forces an immediate flag refresh.
func (c *Client) RefreshFlags(ctx context.Context) error {
	return c.refresh(ctx)
}

// FlushLogs forces an immediate upload of queued access logs.
func (c *Client) FlushLogs(ctx context.Context) error {
	return c.flush(ctx)
}

// refresh fetches the flag collection, parses it and atomically installs
// the new snapshot. Malformed definitions are skipped; transport failures
// leave the previous snapshot serving.
func (c *Client) refresh(ctx context.Context) error {
	if c.cfg.OfflineMode {
		return ErrOffline
	}

	start := time.Now()

	var resp *transport.FlagsResponse
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		r, err := c.transport.FetchFlags(ctx)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		if !circuit.IsOpen(err) {
			c.tracker.RecordAPICall(false)
		}
		c.telemetry.RecordRefresh(ctx, false, time.Since(start), 0)
		return err
	}
	c.tracker.RecordAPICall(true)

	flags := make(map[string]*domain.Flag, len(resp.Data))
	skipped := 0
	for _, rec := range resp.Data {
		flag, err := rec.ToDomain()
		if err != nil {
			skipped++
			c.logger.Warn().Err(err).Str("flag", rec.Name).Msg("skipping malformed flag definition")
			continue
		}
		flags[flag.Key] = flag
	}
	if skipped > 0 {
		c.tracker.RecordDataErrors(skipped)
	}

	now := time.Now().UTC()
	old, installed := c.store.Install(flags, now)
	c.tracker.MarkSync(now)
	c.telemetry.RecordRefresh(ctx, true, time.Since(start), installed.Len())
	c.logger.Debug().
		Int("flags", installed.Len()).
		Int("skipped", skipped).
		Msg("flag snapshot installed")

	if c.onFlagChange != nil {
		for _, change := range cache.Diff(old, installed) {
			c.notifyChange(change)
		}
	}

	return nil
}

// notifyChange invokes the change handler, isolating the refresh loop from
// handler panics.
func (c *Client) notifyChange(change cache.Change) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Interface("panic", r).
				Str("flag", change.Key).
				Msg("flag change handler panicked")
		}
	}()
	c.onFlagChange(change.Key, change.Old, change.New)
}

// flush drains up to MaxLogsBatch queued access logs and uploads them. A
// failed upload re-queues the batch for the next attempt.
func (c *Client) flush(ctx context.Context) error {
	if c.cfg.OfflineMode {
		return ErrOffline
	}
	if !c.cfg.EnableAnalytics {
		return ErrAnalyticsDisabled
	}

	c.reportDroppedLogs(ctx)

	batch := c.tracker.DrainBatch(c.cfg.MaxLogsBatch)
	if len(batch) == 0 {
		return nil
	}

	metadata := transport.NewSessionMetadata(c.sessionID, Version, c.cfg.Environment, c.startedAt)
	metadata.Stats = c.tracker.Snapshot()

	payload := transport.LogBatch{
		SessionID: c.sessionID,
		Logs:      batch,
		Metadata:  metadata,
	}

	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		return c.transport.UploadLogs(ctx, payload)
	})
	if err != nil {
		c.tracker.Requeue(batch)
		if !circuit.IsOpen(err) {
			c.tracker.RecordAPICall(false)
		}
		c.telemetry.RecordUpload(ctx, false, len(batch))
		return err
	}

	c.tracker.RecordAPICall(true)
	c.tracker.MarkUpload(time.Now().UTC())
	c.telemetry.RecordUpload(ctx, true, len(batch))
	c.logger.Debug().Int("logs", len(batch)).Msg("access logs uploaded")
	return nil
}

// reportDroppedLogs forwards the drop counter delta to telemetry.
func (c *Client) reportDroppedLogs(ctx context.Context) {
	total := c.tracker.Snapshot().DroppedLogs
	seen := c.droppedSeen.Swap(total)
	c.telemetry.RecordDroppedLogs(ctx, total-seen)
}

// GetStats returns a value copy of the client's counters.
func (c *Client) GetStats() Stats {
	snap := c.tracker.Snapshot()

	return Stats{
		SessionID:          c.sessionID,
		TotalEvaluations:   snap.TotalEvaluations,
		UniqueUsers:        snap.UniqueUsers,
		UniqueFlags:        snap.UniqueFlags,
		SegmentMatches:     snap.SegmentMatches,
		RolloutEvaluations: snap.RolloutEvaluations,
		BlockedEvaluations: snap.BlockedEvaluations,
		InvalidInputs:      snap.InvalidInputs,
		CoercionErrors:     snap.CoercionErrors,
		DataErrors:         snap.DataErrors,
		DroppedLogs:        snap.DroppedLogs,
		PendingLogs:        snap.PendingLogs,
		CachedFlags:        c.store.Current().Len(),
		APICalls:           APICallStats(snap.APICalls),
		Timing:             TimingStats(snap.Timing),
		CircuitState:       c.breaker.GetState().String(),
		LastSync:           snap.LastSync,
		LastLogUpload:      snap.LastUpload,
	}
}

// GetHealthCheck summarizes the client's operational state.
func (c *Client) GetHealthCheck() HealthCheck {
	snap := c.tracker.Snapshot()
	breakerStats := c.breaker.GetStats()

	status := "healthy"
	if breakerStats.State != circuit.StateClosed {
		status = "degraded"
	} else if !c.cfg.OfflineMode && snap.LastSync.IsZero() {
		status = "degraded"
	}

	return HealthCheck{
		Status:           status,
		SDKVersion:       Version,
		SessionID:        c.sessionID,
		Environment:      c.cfg.Environment,
		OfflineMode:      c.cfg.OfflineMode,
		AnalyticsEnabled: c.cfg.EnableAnalytics,
		CachedFlags:      c.store.Current().Len(),
		LastSync:         snap.LastSync,
		CircuitState:     breakerStats.State.String(),
		CircuitFailures:  breakerStats.Failures,
		PendingLogs:      snap.PendingLogs,
		Uptime:           time.Since(c.startedAt),
	}
}

// Shutdown stops the background workers, attempts a final log flush, waits
// for the loops to exit bounded by ctx, and releases the evaluator's cache
// workers. It is idempotent, and the client keeps serving the last installed
// snapshot afterwards; only regex rule caching degrades to recompilation.
func (c *Client) Shutdown(ctx context.Context) error {
	var err error

	c.shutdownOnce.Do(func() {
		c.logger.Info().Msg("shutting down")
		c.cancel()

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}

		if !c.cfg.OfflineMode && c.cfg.EnableAnalytics {
			if flushErr := c.flush(ctx); flushErr != nil {
				c.logger.Warn().Err(flushErr).Msg("final log flush failed")
			}
		}

		c.eval.Close()
	})

	return err
}
