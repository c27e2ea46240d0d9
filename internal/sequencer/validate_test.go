package sequencer

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidatingValueMatches(t *testing.T) {
	cases := []struct {
		name             string
		recorded, intended int64
		want             bool
	}{
		{"exact match", 1000, 1000, true},
		{"within tolerance", 1000, 997, true}, // 0.5% of 1000 = 5
		{"at boundary", 1000, 995, true},
		{"just over tolerance", 1000, 994, false},
		{"wildly off", 1000, 1, false},
		{"both zero", 0, 0, true},
		{"recorded zero, intended nonzero", 0, 1, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := validatingValueMatches(decimal.NewFromInt(c.recorded), decimal.NewFromInt(c.intended))
			if got != c.want {
				t.Errorf("validatingValueMatches(%d, %d) = %v, want %v", c.recorded, c.intended, got, c.want)
			}
		})
	}
}
