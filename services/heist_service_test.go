package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"loyalty-heist-system/models"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestStatusForReason(t *testing.T) {
	tests := []struct {
		code string
		want models.HeistStatus
	}{
		{ReasonInsufficientTokens, models.HeistStatusFailedInsufficientTokens},
		{ReasonCooldownActive, models.HeistStatusFailedCooldown},
		{ReasonDailyLimitExceeded, models.HeistStatusFailedCooldown},
		{ReasonTargetProtected, models.HeistStatusFailedTargetProtected},
		{ReasonInsufficientVictimPoints, models.HeistStatusFailedInsufficientPoints},
		{ReasonShieldBlocked, models.HeistStatusFailedShield},
		{ReasonInvalidTarget, models.HeistStatusFailedInvalidTarget},
		{"SOMETHING_ELSE", models.HeistStatusFailedInvalidTarget},
	}
	for _, tt := range tests {
		if got := statusForReason(tt.code); got != tt.want {
			t.Errorf("statusForReason(%s) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestIsSerializationFailure(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001"}
	deadlock := &pgconn.PgError{Code: "40P01"}
	unique := &pgconn.PgError{Code: "23505"}

	if !isSerializationFailure(serialization) {
		t.Error("40001 should be retryable")
	}
	if !isSerializationFailure(fmt.Errorf("wrapped: %w", serialization)) {
		t.Error("wrapped 40001 should be retryable")
	}
	if !isSerializationFailure(deadlock) {
		t.Error("40P01 should be retryable")
	}
	if isSerializationFailure(unique) {
		t.Error("unique violation is not retryable")
	}
	if isSerializationFailure(errors.New("plain error")) {
		t.Error("plain errors are not retryable")
	}
	if isSerializationFailure(nil) {
		t.Error("nil is not a failure")
	}
}

func TestApplyMetadata(t *testing.T) {
	var h models.Heist
	applyMetadata(&h, nil)
	if h.IPAddress != nil || h.UserAgent != nil {
		t.Error("nil metadata must leave fields empty")
	}

	applyMetadata(&h, &HeistMetadata{IPAddress: "10.0.0.1"})
	if h.IPAddress == nil || *h.IPAddress != "10.0.0.1" {
		t.Errorf("IPAddress = %v, want 10.0.0.1", h.IPAddress)
	}
	if h.UserAgent != nil {
		t.Error("empty user agent must stay nil")
	}
}

func TestLockTimeoutStatement(t *testing.T) {
	got := lockTimeoutStatement(heistWaitTimeout)
	want := "SET LOCAL lock_timeout = '2000ms'"
	if got != want {
		t.Errorf("lockTimeoutStatement = %q, want %q", got, want)
	}

	// The lock-wait bound must leave room inside the transaction bound,
	// or a single contended lock could eat the whole execution budget.
	if heistWaitTimeout >= heistExecTimeout {
		t.Errorf("lock-wait bound %v must be shorter than transaction bound %v",
			heistWaitTimeout, heistExecTimeout)
	}
}

func TestRetryBackoff(t *testing.T) {
	if err := retryBackoff(t.Context(), 1); err != nil {
		t.Errorf("live context: unexpected error %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := retryBackoff(ctx, 3)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("canceled context: err = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("canceled context still waited %v", elapsed)
	}
}

func TestExecuteHeistKillSwitch(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	svc := &HeistService{Config: cfg}

	res, err := svc.ExecuteHeist(t.Context(), "a", "b", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("disabled engine must not succeed")
	}
	if res.ErrorCode != ReasonFeatureDisabled {
		t.Errorf("ErrorCode = %s, want %s", res.ErrorCode, ReasonFeatureDisabled)
	}
	if res.HeistID != "" {
		t.Error("kill switch must not write an outcome record")
	}
}
