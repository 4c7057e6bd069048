package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/fujisakiest-go/fujisaki"
)

func accent(on, off float64) fujisaki.Command {
	return fujisaki.Command{Type: fujisaki.Accent, Onset: on, Offset: off, IntegratedAmplitude: 0.1, Omega: 20}
}

func phrase(on float64) fujisaki.Command {
	return fujisaki.Command{Type: fujisaki.Phrase, Onset: on, Offset: on, IntegratedAmplitude: 0.3, Omega: 3}
}

func TestCoOccur(t *testing.T) {
	tests := []struct {
		name string
		a, b fujisaki.Command
		want bool
	}{
		{"identical", accent(0.5, 0.7), accent(0.5, 0.7), true},
		{"within lag", accent(0.5, 0.7), accent(0.6, 0.8), true},
		{"too far", accent(0.5, 0.7), accent(0.65, 0.8), false},
		{"type differs", accent(0.5, 0.5), phrase(0.5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoOccur(tt.a, tt.b, 0.1, 1e-8))
		})
	}
}

func TestEvaluate(t *testing.T) {
	ref := []fujisaki.Command{accent(1.0, 1.2), phrase(0), accent(0.3, 0.5), accent(2.0, 2.3)}
	est := []fujisaki.Command{accent(0.32, 0.52), accent(1.5, 1.6), accent(2.05, 2.3), phrase(0.05)}

	got := Evaluate(ref, est, 0.1, 1e-8)
	require.Len(t, got, 2)

	// reference sorted by onset starts with the phrase
	assert.Equal(t, fujisaki.Phrase, got[0].Type)
	assert.Equal(t, Result{TotalNumInReference: 1, TotalNumInEstimated: 1, MatchedNum: 1, AllowedTimeLag: 0.1}, got[0].Result)

	assert.Equal(t, fujisaki.Accent, got[1].Type)
	assert.Equal(t, 3, got[1].TotalNumInReference)
	assert.Equal(t, 3, got[1].TotalNumInEstimated)
	assert.Equal(t, 2, got[1].MatchedNum)
	assert.InDelta(t, 2.0/3, got[1].Recall(), 1e-12)
	assert.InDelta(t, 2.0/3, got[1].Precision(), 1e-12)
}

func TestEvaluateMatchesInOrder(t *testing.T) {
	// each estimate co-occurs with both references but can be used once
	ref := []fujisaki.Command{accent(0.50, 0.60), accent(0.55, 0.65)}
	est := []fujisaki.Command{accent(0.52, 0.62)}
	got := Evaluate(ref, est, 0.1, 1e-8)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].MatchedNum)
}

func TestEvaluateEmpty(t *testing.T) {
	assert.Empty(t, Evaluate(nil, nil, 0.1, 1e-8))

	got := Evaluate(nil, []fujisaki.Command{accent(0.1, 0.2)}, 0.1, 1e-8)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].MatchedNum)
	assert.Equal(t, 1, got[0].TotalNumInEstimated)
	assert.Zero(t, got[0].Recall())
}

func TestAggregate(t *testing.T) {
	a := Evaluate([]fujisaki.Command{accent(0.3, 0.5), phrase(0)}, []fujisaki.Command{accent(0.3, 0.5)}, 0.1, 1e-8)
	b := Evaluate([]fujisaki.Command{accent(1, 1.2)}, []fujisaki.Command{accent(1.4, 1.6), phrase(0)}, 0.1, 1e-8)

	total := Aggregate([][]TypeResult{a, b})
	require.Len(t, total, 2)
	assert.Equal(t, TypeResult{Type: fujisaki.Phrase, Result: Result{1, 1, 0, 0.1}}, total[0])
	assert.Equal(t, TypeResult{Type: fujisaki.Accent, Result: Result{2, 2, 1, 0.1}}, total[1])
}
