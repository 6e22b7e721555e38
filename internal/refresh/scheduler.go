package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/startrader-api/internal/arbitrage"
	"github.com/ksred/startrader-api/internal/cache"
	"github.com/ksred/startrader-api/internal/gateway"
	"github.com/ksred/startrader-api/internal/history"
	"github.com/ksred/startrader-api/internal/names"
	"github.com/ksred/startrader-api/internal/positions"
	"github.com/ksred/startrader-api/internal/types"
)

// ErrRefreshInProgress is returned when a forced refresh is requested while
// a cycle is already running. Overlapping cycles are never allowed.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Config carries the scheduler's tuning knobs.
type Config struct {
	Interval             time.Duration
	StartupDelay         time.Duration
	CallTimeout          time.Duration
	MaxRetryAttempts     int
	BaseBackoff          time.Duration
	MaxBackoff           time.Duration
	MaxRequestsPerMinute int
	FailureThreshold     int
	CircuitCooldown      time.Duration
	TopOpportunities     int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 30 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Minute
	}
	if c.MaxRequestsPerMinute <= 0 {
		c.MaxRequestsPerMinute = 30
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.CircuitCooldown <= 0 {
		c.CircuitCooldown = 15 * time.Minute
	}
	if c.TopOpportunities <= 0 {
		c.TopOpportunities = 10
	}
	return c
}

// Broadcaster pushes refresh events to connected live-feed clients.
type Broadcaster interface {
	BroadcastEvent(event string, payload interface{})
}

// Scheduler drives periodic snapshot rebuilding. It owns every mutable
// counter in the refresh path (the in-progress flag, the failure counts via
// the circuit breaker, and attempt timing) and exposes them only through
// Status. The snapshot cache is written from here and nowhere else.
type Scheduler struct {
	client    gateway.Client
	snapshots *cache.SnapshotCache
	names     names.Resolver
	locations *positions.Resolver
	cfg       Config

	gate    *Gate
	breaker *CircuitBreaker

	history     *history.Service
	engine      *arbitrage.Service
	broadcaster Broadcaster

	mu             sync.Mutex
	inProgress     bool
	sessionExpired bool
	lastAttempt    time.Time
	nextAttempt    time.Time
	lastPartial    int
	lastDuration   time.Duration
	wake           chan struct{}
}

func NewScheduler(client gateway.Client, snapshots *cache.SnapshotCache, nameSvc names.Resolver, locations *positions.Resolver, cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		client:    client,
		snapshots: snapshots,
		names:     nameSvc,
		locations: locations,
		cfg:       cfg,
		gate:      NewGate(cfg.MaxRequestsPerMinute),
		breaker:   NewCircuitBreaker(cfg.FailureThreshold, cfg.CircuitCooldown),
		wake:      make(chan struct{}, 1),
	}
}

// SetHistory wires cycle persistence. Optional; nil disables recording.
func (s *Scheduler) SetHistory(h *history.Service) {
	s.history = h
}

// SetEngine wires the opportunity engine used to snapshot the top
// opportunities after each committed cycle. Optional.
func (s *Scheduler) SetEngine(e *arbitrage.Service) {
	s.engine = e
}

// SetBroadcaster wires the live feed. Optional.
func (s *Scheduler) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Start runs the refresh loop until the context is cancelled. The first
// cycle runs after the configured startup delay; subsequent timing follows
// cycle outcomes (interval on success, backoff on failure, cool-down while
// the circuit is open).
func (s *Scheduler) Start(ctx context.Context) {
	logger := log.With().Str("component", "refresh_scheduler").Logger()
	logger.Info().
		Dur("interval", s.cfg.Interval).
		Dur("startup_delay", s.cfg.StartupDelay).
		Int("max_requests_per_minute", s.cfg.MaxRequestsPerMinute).
		Msg("starting refresh scheduler")

	if s.cfg.StartupDelay > 0 {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down refresh scheduler")
			return
		case <-time.After(s.cfg.StartupDelay):
		}
	}

	s.setNextAttempt(time.Now())

	for {
		timer := time.NewTimer(s.untilNextAttempt())
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info().Msg("shutting down refresh scheduler")
			return
		case <-s.wake:
			// A forced refresh ran and moved the schedule; recompute.
			timer.Stop()
			continue
		case <-timer.C:
		}

		s.attempt(ctx, logger)
	}
}

// attempt runs one scheduled refresh if the circuit admits it.
func (s *Scheduler) attempt(ctx context.Context, logger zerolog.Logger) {
	if !s.breaker.Allow() {
		remaining := s.breaker.RemainingCooldown()
		logger.Debug().
			Dur("cooldown_remaining", remaining).
			Msg("circuit open, skipping scheduled refresh")
		s.setNextAttempt(time.Now().Add(remaining))
		return
	}

	res, started := s.runCycle(ctx)
	if !started {
		// Another cycle (a forced one) is in flight; it reschedules on
		// completion.
		return
	}
	s.scheduleNext(res)
}

// scheduleNext computes when the next scheduled attempt should run based on
// the last cycle's outcome.
func (s *Scheduler) scheduleNext(res CycleResult) {
	var delay time.Duration
	switch res.Outcome {
	case OutcomeOK, OutcomePartial:
		delay = s.cfg.Interval
	case OutcomeSessionInvalid:
		// Renewal happens at the start of the next cycle; retry promptly.
		delay = s.cfg.BaseBackoff
	default:
		if remaining := s.breaker.RemainingCooldown(); remaining > 0 {
			delay = remaining
		} else {
			delay = Backoff(s.breaker.Failures(), s.cfg.BaseBackoff, s.cfg.MaxBackoff)
		}
	}
	s.setNextAttempt(time.Now().Add(delay))
}

// ForceRefresh resets the failure counter and runs a cycle immediately,
// bypassing backoff and an open circuit. It fails only when a cycle is
// already in flight.
func (s *Scheduler) ForceRefresh(ctx context.Context) (*CycleResult, error) {
	s.breaker.Reset()

	res, started := s.runCycle(ctx)
	if !started {
		return nil, ErrRefreshInProgress
	}

	s.setNextAttempt(time.Now().Add(s.cfg.Interval))
	select {
	case s.wake <- struct{}{}:
	default:
	}

	return &res, nil
}

// runCycle executes a full refresh cycle and applies its outcome to the
// breaker, counters, history, and live feed. Returns started=false when a
// cycle is already in flight; that is a skipped trigger, not an error.
func (s *Scheduler) runCycle(ctx context.Context) (CycleResult, bool) {
	s.mu.Lock()
	if s.inProgress {
		s.mu.Unlock()
		log.Info().
			Str("component", "refresh_scheduler").
			Msg("refresh already in progress, skipping trigger")
		return CycleResult{}, false
	}
	s.inProgress = true
	s.lastAttempt = time.Now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inProgress = false
		s.mu.Unlock()
	}()

	cycleID := uuid.New().String()
	logger := log.With().
		Str("component", "refresh_scheduler").
		Str("cycle_id", cycleID).
		Logger()

	start := time.Now()
	res := s.executeCycle(ctx, cycleID, logger)
	res.Duration = time.Since(start)
	res.DurationMs = res.Duration.Milliseconds()
	res.OutcomeLabel = res.Outcome.String()

	committed := res.Outcome == OutcomeOK || res.Outcome == OutcomePartial

	switch res.Outcome {
	case OutcomeOK, OutcomePartial:
		s.breaker.RecordSuccess()
	case OutcomeTransient:
		s.breaker.RecordFailure()
	case OutcomeSessionInvalid:
		// Session losses are an identity problem, not an upstream health
		// problem; they do not feed the circuit.
		s.mu.Lock()
		s.sessionExpired = true
		s.mu.Unlock()
	}

	s.mu.Lock()
	if committed {
		s.lastPartial = res.MarketsFailed
	}
	s.lastDuration = res.Duration
	s.mu.Unlock()

	s.record(cycleID, res, committed)

	if committed {
		logger.Info().
			Str("outcome", res.OutcomeLabel).
			Int("markets_processed", res.MarketsProcessed).
			Int("markets_failed", res.MarketsFailed).
			Int("orders_fetched", res.OrdersFetched).
			Int("orders_skipped", res.OrdersSkipped).
			Dur("duration", res.Duration).
			Msg("refresh cycle complete")
	} else {
		logger.Warn().
			Err(res.Err).
			Str("outcome", res.OutcomeLabel).
			Int("consecutive_failures", s.breaker.Failures()).
			Dur("duration", res.Duration).
			Msg("refresh cycle failed")
	}

	return res, true
}

// executeCycle does the actual work: session renewal if pending, location
// table priming, per-market order fetches with isolation, name resolution,
// assembly, and the atomic snapshot replace.
func (s *Scheduler) executeCycle(ctx context.Context, cycleID string, logger zerolog.Logger) CycleResult {
	res := CycleResult{CycleID: cycleID}

	s.mu.Lock()
	expired := s.sessionExpired
	s.mu.Unlock()
	if expired {
		if err := s.client.RenewSession(ctx); err != nil {
			res.Outcome = OutcomeTransient
			res.Err = fmt.Errorf("failed to renew session: %w", err)
			return res
		}
		s.mu.Lock()
		s.sessionExpired = false
		s.mu.Unlock()
		logger.Info().Msg("upstream session renewed")
	}

	if !s.locations.Loaded() {
		if err := s.gate.Wait(ctx); err != nil {
			res.Outcome = OutcomeTransient
			res.Err = err
			return res
		}
		if err := s.locations.Load(ctx); err != nil {
			if errors.Is(err, gateway.ErrSessionInvalid) {
				res.Outcome = OutcomeSessionInvalid
				res.Err = err
				return res
			}
			res.Outcome = OutcomeTransient
			res.Err = fmt.Errorf("failed to load market locations: %w", err)
			return res
		}
	}

	sites := s.locations.Sites()
	if len(sites) == 0 {
		res.Outcome = OutcomeTransient
		res.Err = errors.New("market location table is empty")
		return res
	}

	now := time.Now()
	markets := make([]types.Market, 0, len(sites))
	orders := make([]types.Order, 0, len(sites)*8)

	for _, site := range sites {
		// Shutdown must not wait for the whole cycle.
		select {
		case <-ctx.Done():
			res.Outcome = OutcomeTransient
			res.Err = ctx.Err()
			return res
		default:
		}

		raw, err := s.fetchMarketOrders(ctx, site.MarketID)
		if err != nil {
			if errors.Is(err, gateway.ErrSessionInvalid) {
				res.Outcome = OutcomeSessionInvalid
				res.Err = err
				return res
			}
			res.MarketsFailed++
			logger.Warn().
				Err(err).
				Int64("market_id", site.MarketID).
				Msg("market fetch failed, skipping market")
			continue
		}

		market := types.Market{
			MarketID:    site.MarketID,
			Name:        site.Name,
			ConstructID: site.ConstructID,
			OwnerID:     site.OwnerID,
			OwnerName:   s.names.ResolvePlayer(ctx, site.OwnerID),
			PlanetID:    site.PlanetID,
			PlanetName:  site.PlanetName,
			Position:    site.Position,
			UpdatedAt:   now,
		}

		for _, ro := range raw {
			if ro.Quantity == 0 {
				res.OrdersSkipped++
				continue
			}
			order := types.Order{
				OrderID:   ro.OrderID,
				MarketID:  site.MarketID,
				ItemType:  ro.ItemType,
				ItemName:  s.names.ResolveItem(ctx, ro.ItemType),
				Price:     ro.Price,
				OwnerID:   ro.OwnerID,
				OwnerName: s.names.ResolvePlayer(ctx, ro.OwnerID),
				ExpiresAt: ro.ExpiresAt,
				UpdatedAt: ro.UpdatedAt,
			}
			if ro.Quantity > 0 {
				order.BuyQuantity = ro.Quantity
			} else {
				order.SellQuantity = -ro.Quantity
			}
			market.Orders = append(market.Orders, order)
			orders = append(orders, order)
		}

		res.OrdersFetched += len(market.Orders)
		markets = append(markets, market)
		res.MarketsProcessed++
	}

	// Keeping stale data beats committing an empty snapshot.
	if res.MarketsProcessed == 0 {
		res.Outcome = OutcomeTransient
		res.Err = fmt.Errorf("all %d markets failed to fetch", res.MarketsFailed)
		return res
	}

	s.snapshots.Replace(markets, orders)

	if res.MarketsFailed > 0 {
		res.Outcome = OutcomePartial
	} else {
		res.Outcome = OutcomeOK
	}
	return res
}

// fetchMarketOrders fetches one market's order book with bounded retries.
// Session invalidation is returned immediately; transient errors are retried
// up to the attempt limit, each attempt gated by the rate limiter and
// time-boxed by the per-call timeout.
func (s *Scheduler) fetchMarketOrders(ctx context.Context, marketID int64) ([]gateway.RawOrder, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetryAttempts; attempt++ {
		if err := s.gate.Wait(ctx); err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		raw, err := s.client.FetchOrders(callCtx, marketID)
		cancel()

		if err == nil {
			return raw, nil
		}
		if errors.Is(err, gateway.ErrSessionInvalid) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		log.Debug().
			Err(err).
			Int64("market_id", marketID).
			Int("attempt", attempt).
			Msg("order fetch attempt failed")
	}
	return nil, lastErr
}

// record persists the cycle and, for committed cycles, a snapshot of the top
// opportunities, then pushes the summary to the live feed. Recording is best
// effort: failures are logged and never affect the cycle outcome.
func (s *Scheduler) record(cycleID string, res CycleResult, committed bool) {
	if s.history != nil {
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		cycle := &history.RefreshCycle{
			CycleID:          cycleID,
			Outcome:          res.OutcomeLabel,
			MarketsProcessed: res.MarketsProcessed,
			MarketsFailed:    res.MarketsFailed,
			OrdersFetched:    res.OrdersFetched,
			OrdersSkipped:    res.OrdersSkipped,
			DurationMs:       res.DurationMs,
			Error:            errText,
		}
		if err := s.history.RecordCycle(cycle); err != nil {
			log.Error().Err(err).Str("cycle_id", cycleID).Msg("failed to record refresh cycle")
		}

		if committed && s.engine != nil {
			opps := s.engine.FindOpportunities(types.OpportunityFilter{Limit: s.cfg.TopOpportunities})
			if err := s.history.RecordTopOpportunities(cycleID, opps); err != nil {
				log.Error().Err(err).Str("cycle_id", cycleID).Msg("failed to record top opportunities")
			}
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastEvent("refresh_cycle", map[string]interface{}{
			"cycle":         res,
			"circuit_state": s.breaker.State().String(),
			"stale":         s.snapshots.IsStale(),
		})
	}
}

// Status returns a read-only view of the scheduler's state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	inProgress := s.inProgress
	lastAttempt := s.lastAttempt
	nextAttempt := s.nextAttempt
	lastPartial := s.lastPartial
	lastDuration := s.lastDuration
	s.mu.Unlock()

	circuit := s.breaker.State()

	state := StateIdle
	switch {
	case inProgress:
		state = StateRefreshing
	case circuit == StateOpen:
		state = StateCircuitOpen
	}

	return Status{
		State:               state,
		ConsecutiveFailures: s.breaker.Failures(),
		PartialFailures:     lastPartial,
		UpstreamAvailable:   circuit == StateClosed,
		CircuitState:        circuit.String(),
		LastAttempt:         lastAttempt,
		NextAttempt:         nextAttempt,
		LastCycleDuration:   lastDuration,
		LastCycleMs:         lastDuration.Milliseconds(),
	}
}

func (s *Scheduler) setNextAttempt(t time.Time) {
	s.mu.Lock()
	s.nextAttempt = t
	s.mu.Unlock()
}

func (s *Scheduler) untilNextAttempt() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	wait := time.Until(s.nextAttempt)
	if wait < 0 {
		return 0
	}
	return wait
}
