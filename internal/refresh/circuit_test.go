package refresh

import (
	"testing"
	"time"
)

func TestCircuitBreaker_ClosedAllowsCalls(t *testing.T) {
	cb := NewCircuitBreaker(5, time.Minute)

	if cb.State() != StateClosed {
		t.Errorf("Expected new breaker to start closed, got %s", cb.State())
	}
	if !cb.Allow() {
		t.Error("Expected Allow() to return true in closed state")
	}
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(5, time.Minute)

	// Failures below the threshold leave the circuit closed.
	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected closed after 4 failures, got %s", cb.State())
	}
	if !cb.Allow() {
		t.Error("Expected Allow() to return true below the threshold")
	}

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Errorf("Expected open after 5 failures, got %s", cb.State())
	}
	if cb.Allow() {
		t.Error("Expected Allow() to return false while open")
	}
	if cb.Failures() != 5 {
		t.Errorf("Expected 5 consecutive failures, got %d", cb.Failures())
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(5, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	if cb.Failures() != 0 {
		t.Errorf("Expected failure count reset after success, got %d", cb.Failures())
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected closed after success, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenAdmitsSingleProbe(t *testing.T) {
	cb := NewCircuitBreaker(2, 30*time.Millisecond)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("Expected open after reaching threshold, got %s", cb.State())
	}
	if cb.Allow() {
		t.Error("Expected Allow() to return false before cool-down elapses")
	}

	time.Sleep(40 * time.Millisecond)

	if !cb.Allow() {
		t.Error("Expected one probe to be admitted after cool-down")
	}
	if cb.State() != StateHalfOpen {
		t.Errorf("Expected half-open while probe is in flight, got %s", cb.State())
	}
	if cb.Allow() {
		t.Error("Expected second call to be blocked while probe is in flight")
	}
}

func TestCircuitBreaker_ProbeSuccessCloses(t *testing.T) {
	cb := NewCircuitBreaker(2, 10*time.Millisecond)

	cb.RecordFailure()
	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("Expected probe to be admitted after cool-down")
	}
	cb.RecordSuccess()

	if cb.State() != StateClosed {
		t.Errorf("Expected closed after successful probe, got %s", cb.State())
	}
	if cb.Failures() != 0 {
		t.Errorf("Expected zero failures after successful probe, got %d", cb.Failures())
	}
	if !cb.Allow() {
		t.Error("Expected Allow() to return true after circuit closes")
	}
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(2, 10*time.Millisecond)

	cb.RecordFailure()
	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("Expected probe to be admitted after cool-down")
	}
	cb.RecordFailure()

	if cb.State() != StateOpen {
		t.Errorf("Expected open after failed probe, got %s", cb.State())
	}
	if cb.Allow() {
		t.Error("Expected Allow() to return false after probe failure restarts cool-down")
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Hour)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("Expected open, got %s", cb.State())
	}

	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("Expected closed after Reset, got %s", cb.State())
	}
	if cb.Failures() != 0 {
		t.Errorf("Expected zero failures after Reset, got %d", cb.Failures())
	}
	if !cb.Allow() {
		t.Error("Expected Allow() to return true after Reset")
	}
}

func TestCircuitBreaker_RemainingCooldown(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)

	if cb.RemainingCooldown() != 0 {
		t.Errorf("Expected zero cooldown while closed, got %s", cb.RemainingCooldown())
	}

	cb.RecordFailure()
	remaining := cb.RemainingCooldown()
	if remaining <= 0 || remaining > time.Minute {
		t.Errorf("Expected remaining cooldown within (0, 1m], got %s", remaining)
	}
}

func TestCircuitState_String(t *testing.T) {
	cases := []struct {
		state CircuitState
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half_open"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("Expected %q, got %q", tc.want, got)
		}
	}
}
