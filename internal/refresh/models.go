package refresh

import "time"

// Outcome classifies how a refresh cycle ended. Callers branch on the kind
// instead of inspecting error types.
type Outcome int

const (
	// OutcomeOK: every market processed, snapshot replaced.
	OutcomeOK Outcome = iota
	// OutcomePartial: some markets failed but the snapshot was still
	// replaced with the successful ones.
	OutcomePartial
	// OutcomeTransient: the whole cycle failed; the previous snapshot is
	// kept and the failure counts toward backoff and the circuit.
	OutcomeTransient
	// OutcomeSessionInvalid: the upstream rejected our session; the cycle
	// aborted without counting toward the circuit, and the session will be
	// renewed before the next attempt.
	OutcomeSessionInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "OK"
	case OutcomePartial:
		return "PARTIAL"
	case OutcomeTransient:
		return "TRANSIENT_FAILURE"
	case OutcomeSessionInvalid:
		return "SESSION_INVALID"
	default:
		return "UNKNOWN"
	}
}

// CycleResult summarizes one refresh cycle.
type CycleResult struct {
	CycleID          string        `json:"cycle_id"`
	Outcome          Outcome       `json:"-"`
	OutcomeLabel     string        `json:"outcome"`
	MarketsProcessed int           `json:"markets_processed"`
	MarketsFailed    int           `json:"markets_failed"`
	OrdersFetched    int           `json:"orders_fetched"`
	OrdersSkipped    int           `json:"orders_skipped"`
	Duration         time.Duration `json:"-"`
	DurationMs       int64         `json:"duration_ms"`
	Err              error         `json:"-"`
}

// Scheduler states exposed through Status.
const (
	StateIdle        = "idle"
	StateRefreshing  = "refreshing"
	StateCircuitOpen = "circuit_open"
)

// Status is a read-only view of the scheduler's counters and timing. All
// mutable state stays inside the scheduler.
type Status struct {
	State               string        `json:"state"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	PartialFailures     int           `json:"partial_failures"`
	UpstreamAvailable   bool          `json:"upstream_available"`
	CircuitState        string        `json:"circuit_state"`
	LastAttempt         time.Time     `json:"last_attempt"`
	NextAttempt         time.Time     `json:"next_attempt"`
	LastCycleDuration   time.Duration `json:"-"`
	LastCycleMs         int64         `json:"last_cycle_ms"`
}
