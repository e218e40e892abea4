package services

import "testing"

func TestHeistConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*HeistConfig)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *HeistConfig) {},
		},
		{
			name:    "zero steal percentage",
			mutate:  func(c *HeistConfig) { c.StealPercentage = 0 },
			wantErr: true,
		},
		{
			name:    "steal percentage above half",
			mutate:  func(c *HeistConfig) { c.StealPercentage = 0.51 },
			wantErr: true,
		},
		{
			name:   "steal percentage at the boundary",
			mutate: func(c *HeistConfig) { c.StealPercentage = 0.5 },
		},
		{
			name:    "max points below one",
			mutate:  func(c *HeistConfig) { c.MaxPointsPerHeist = 0 },
			wantErr: true,
		},
		{
			name:    "max points above cap",
			mutate:  func(c *HeistConfig) { c.MaxPointsPerHeist = 1001 },
			wantErr: true,
		},
		{
			name:    "protection percentage of one",
			mutate:  func(c *HeistConfig) { c.MinProtectionPercentage = 1 },
			wantErr: true,
		},
		{
			name:   "zero protection percentage is allowed",
			mutate: func(c *HeistConfig) { c.MinProtectionPercentage = 0 },
		},
		{
			name:    "negative protection percentage",
			mutate:  func(c *HeistConfig) { c.MinProtectionPercentage = -0.1 },
			wantErr: true,
		},
		{
			name:    "free heists not allowed",
			mutate:  func(c *HeistConfig) { c.TokenCost = 0 },
			wantErr: true,
		},
		{
			name:    "negative cooldown",
			mutate:  func(c *HeistConfig) { c.AttackerCooldownHours = -1 },
			wantErr: true,
		},
		{
			name:    "zero daily limit",
			mutate:  func(c *HeistConfig) { c.MaxHeistsPerDay = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultHeistConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
