package services

import "testing"

func TestHistoryFilterNormalize(t *testing.T) {
	tests := []struct {
		name       string
		in         HistoryFilter
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", in: HistoryFilter{}, wantLimit: 20},
		{name: "negative limit", in: HistoryFilter{Limit: -5}, wantLimit: 20},
		{name: "oversized limit", in: HistoryFilter{Limit: 500}, wantLimit: 20},
		{name: "max allowed", in: HistoryFilter{Limit: 100}, wantLimit: 100},
		{name: "negative offset", in: HistoryFilter{Limit: 10, Offset: -1}, wantLimit: 10},
		{name: "valid paging kept", in: HistoryFilter{Limit: 50, Offset: 200}, wantLimit: 50, wantOffset: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.normalize()
			if tt.in.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", tt.in.Limit, tt.wantLimit)
			}
			if tt.in.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", tt.in.Offset, tt.wantOffset)
			}
		})
	}
}
