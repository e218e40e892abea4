package models

import (
	"testing"
	"time"
)

func TestUserItemUsableAt(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)
	one := 1
	zero := 0

	tests := []struct {
		name string
		item UserItem
		want bool
	}{
		{
			name: "unlimited item",
			item: UserItem{Active: true, Definition: ItemDefinition{Active: true}},
			want: true,
		},
		{
			name: "instance deactivated",
			item: UserItem{Active: false, Definition: ItemDefinition{Active: true}},
		},
		{
			name: "definition retired from catalog",
			item: UserItem{Active: true, Definition: ItemDefinition{Active: false}},
		},
		{
			name: "expired",
			item: UserItem{Active: true, ExpiresAt: &past, Definition: ItemDefinition{Active: true}},
		},
		{
			name: "expiring exactly now",
			item: UserItem{Active: true, ExpiresAt: &now, Definition: ItemDefinition{Active: true}},
		},
		{
			name: "not yet expired",
			item: UserItem{Active: true, ExpiresAt: &future, Definition: ItemDefinition{Active: true}},
			want: true,
		},
		{
			name: "exhausted",
			item: UserItem{Active: true, UsesRemaining: &zero, Definition: ItemDefinition{Active: true}},
		},
		{
			name: "one use left",
			item: UserItem{Active: true, UsesRemaining: &one, Definition: ItemDefinition{Active: true}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.UsableAt(now); got != tt.want {
				t.Errorf("UsableAt = %v, want %v", got, tt.want)
			}
		})
	}
}
