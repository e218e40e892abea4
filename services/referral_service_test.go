package services

import (
	"errors"
	"testing"
)

func TestCreateReferralRejectsSelf(t *testing.T) {
	svc := &ReferralService{}

	// The self-referral guard runs before any row is written, so no DB
	// is needed to exercise it.
	r, err := svc.CreateReferral("user-1", "user-1", "CODE123")
	if !errors.Is(err, ErrSelfReferral) {
		t.Errorf("err = %v, want ErrSelfReferral", err)
	}
	if r != nil {
		t.Error("self-referral must not return a referral row")
	}
}
