package models

import "testing"

func TestHeistSucceeded(t *testing.T) {
	failures := []HeistStatus{
		HeistStatusFailedInsufficientTokens,
		HeistStatusFailedCooldown,
		HeistStatusFailedTargetProtected,
		HeistStatusFailedInvalidTarget,
		HeistStatusFailedInsufficientPoints,
		HeistStatusFailedShield,
	}
	for _, status := range failures {
		h := Heist{Status: status}
		if h.Succeeded() {
			t.Errorf("%s must not count as a committed transfer", status)
		}
	}

	h := Heist{Status: HeistStatusSuccess}
	if !h.Succeeded() {
		t.Error("success status must count as a committed transfer")
	}
}
