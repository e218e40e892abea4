package services

import "testing"

// a snapshot that passes every check against testConfig()
func passingSnapshot() *eligibilitySnapshot {
	return &eligibilitySnapshot{
		AttackerID:    "attacker",
		VictimID:      "victim",
		VictimFound:   true,
		VictimBalance: 1000,
		TokenBalance:  3,
		Cooldown:      &CooldownStatus{},
		Protection:    &ProtectionStatus{},
		HeistsToday:   0,
	}
}

func TestEvaluateChainOrderAndCodes(t *testing.T) {
	tests := []struct {
		name     string
		cfg      func(*HeistConfig)
		snap     func(*eligibilitySnapshot)
		wantCode string
	}{
		{
			name:     "all checks pass",
			cfg:      func(c *HeistConfig) {},
			snap:     func(s *eligibilitySnapshot) {},
			wantCode: "",
		},
		{
			name:     "feature disabled",
			cfg:      func(c *HeistConfig) { c.Enabled = false },
			snap:     func(s *eligibilitySnapshot) {},
			wantCode: ReasonFeatureDisabled,
		},
		{
			name:     "self targeting",
			cfg:      func(c *HeistConfig) {},
			snap:     func(s *eligibilitySnapshot) { s.VictimID = s.AttackerID },
			wantCode: ReasonInvalidTarget,
		},
		{
			name:     "victim missing",
			cfg:      func(c *HeistConfig) {},
			snap:     func(s *eligibilitySnapshot) { s.VictimFound = false },
			wantCode: ReasonInvalidTarget,
		},
		{
			name:     "victim too poor",
			cfg:      func(c *HeistConfig) {},
			snap:     func(s *eligibilitySnapshot) { s.VictimBalance = 99 },
			wantCode: ReasonInsufficientVictimPoints,
		},
		{
			name:     "no tokens",
			cfg:      func(c *HeistConfig) {},
			snap:     func(s *eligibilitySnapshot) { s.TokenBalance = 0 },
			wantCode: ReasonInsufficientTokens,
		},
		{
			name:     "attacker on cooldown",
			cfg:      func(c *HeistConfig) {},
			snap:     func(s *eligibilitySnapshot) { s.Cooldown.OnCooldown = true },
			wantCode: ReasonCooldownActive,
		},
		{
			name:     "victim protected",
			cfg:      func(c *HeistConfig) {},
			snap:     func(s *eligibilitySnapshot) { s.Protection.IsProtected = true },
			wantCode: ReasonTargetProtected,
		},
		{
			name:     "daily limit reached",
			cfg:      func(c *HeistConfig) {},
			snap:     func(s *eligibilitySnapshot) { s.HeistsToday = 5 },
			wantCode: ReasonDailyLimitExceeded,
		},
		{
			// first failing check wins: disabled outranks everything else
			name: "disabled outranks self-target",
			cfg:  func(c *HeistConfig) { c.Enabled = false },
			snap: func(s *eligibilitySnapshot) {
				s.VictimID = s.AttackerID
				s.TokenBalance = 0
			},
			wantCode: ReasonFeatureDisabled,
		},
		{
			// tokens are checked before cooldowns
			name: "tokens outrank cooldown",
			cfg:  func(c *HeistConfig) {},
			snap: func(s *eligibilitySnapshot) {
				s.TokenBalance = 0
				s.Cooldown.OnCooldown = true
			},
			wantCode: ReasonInsufficientTokens,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.cfg(cfg)
			snap := passingSnapshot()
			tt.snap(snap)

			res := evaluate(cfg, snap)
			if tt.wantCode == "" {
				if !res.Eligible {
					t.Fatalf("expected eligible, got %+v", res)
				}
				return
			}
			if res.Eligible {
				t.Fatalf("expected failure %s, got eligible", tt.wantCode)
			}
			if res.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", res.Code, tt.wantCode)
			}
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	cfg := testConfig()
	snap := passingSnapshot()
	snap.TokenBalance = 0
	snap.Cooldown.OnCooldown = true
	snap.HeistsToday = 99

	first := evaluate(cfg, snap)
	for i := 0; i < 50; i++ {
		if got := evaluate(cfg, snap); got.Code != first.Code {
			t.Fatalf("nondeterministic first failure: %s vs %s", got.Code, first.Code)
		}
	}
}

func TestBaseStealAmount(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		balance int64
		want    int64
	}{
		{1000, 50},  // 5% of 1000
		{2500, 100}, // capped at MaxPointsPerHeist
		{19, 0},     // floor(0.95) = 0
		{0, 0},
		{-5, 0},
	}
	for _, tt := range tests {
		if got := BaseStealAmount(cfg, tt.balance); got != tt.want {
			t.Errorf("BaseStealAmount(%d) = %d, want %d", tt.balance, got, tt.want)
		}
	}
}
