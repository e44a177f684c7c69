package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateCV(t *testing.T) {
	tests := []struct {
		name   string
		scores CVScores
		want   float64
	}{
		{"all fives", CVScores{Skills: 5, Exp: 5, Ach: 5, Culture: 5}, 5.0},
		{"all ones", CVScores{Skills: 1, Exp: 1, Ach: 1, Culture: 1}, 1.0},
		{"mixed", CVScores{Skills: 4, Exp: 3, Ach: 2, Culture: 5}, 0.40*4 + 0.25*3 + 0.20*2 + 0.15*5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AggregateCV(tt.scores), 1e-9)
		})
	}
}

func TestAggregateProject(t *testing.T) {
	tests := []struct {
		name   string
		scores ProjectScores
		want   float64
	}{
		{"all fives", ProjectScores{Corr: 5, Code: 5, Res: 5, Docs: 5, Bonus: 5}, 5.0},
		{"all ones", ProjectScores{Corr: 1, Code: 1, Res: 1, Docs: 1, Bonus: 1}, 1.0},
		{"mixed", ProjectScores{Corr: 3, Code: 4, Res: 2, Docs: 5, Bonus: 1}, 0.30*3 + 0.25*4 + 0.20*2 + 0.15*5 + 0.10*1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AggregateProject(tt.scores), 1e-9)
		})
	}
}

func TestAggregateClampsOutOfRangeInputs(t *testing.T) {
	// Sub-scores should already be clamped upstream, but the aggregate still
	// refuses to leave the 1..5 band.
	assert.Equal(t, 1.0, AggregateCV(CVScores{}))
	assert.Equal(t, 5.0, AggregateProject(ProjectScores{Corr: 9, Code: 9, Res: 9, Docs: 9, Bonus: 9}))
}

func TestCVMatchRate(t *testing.T) {
	assert.InDelta(t, 100.0, CVMatchRate(CVScores{Skills: 5, Exp: 5, Ach: 5, Culture: 5}), 1e-9)
	assert.InDelta(t, 20.0, CVMatchRate(CVScores{Skills: 1, Exp: 1, Ach: 1, Culture: 1}), 1e-9)
}
