package bayspos

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillTransitions(tm transitionModel, states []int) {
	for k := range states {
		if err := tm.update(states, k, 1); err != nil {
			panic(err)
		}
	}
}

func normalized(weights []float64) []float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	probs := make([]float64, len(weights))
	for i, w := range weights {
		probs[i] = w / sum
	}
	return probs
}

// exactConditional scores every candidate of position i by the marginal likelihood of the whole sequence.
func exactConditional(newModel func() transitionModel, states []int, i int, stateS int) []float64 {
	logProbs := make([]float64, 0, stateS-1)
	for j := 1; j < stateS; j++ {
		candidate := append([]int(nil), states...)
		candidate[i] = j
		tm := newModel()
		fillTransitions(tm, candidate)
		logProbs = append(logProbs, tm.logLikelihood(tm.hyperParameter()))
	}
	maxLogProb := math.Inf(-1)
	for _, lp := range logProbs {
		maxLogProb = math.Max(maxLogProb, lp)
	}
	weights := make([]float64, len(logProbs))
	for j, lp := range logProbs {
		weights[j] = math.Exp(lp - maxLogProb)
	}
	return normalized(weights)
}

func collapsedConditional(tm transitionModel, states []int, i int, stateS int) []float64 {
	fillTransitions(tm, states)
	for k := i; k <= i+tm.order(); k++ {
		if err := tm.update(states, k, -1); err != nil {
			panic(err)
		}
	}
	weights := make([]float64, 0, stateS-1)
	for j := 1; j < stateS; j++ {
		weights = append(weights, tm.weight(states, i, j, true))
	}
	return normalized(weights)
}

func TestBigramCollapsedConditional(t *testing.T) {
	stateS := 3
	// repeated states make the indicator terms matter
	states := []int{0, 1, 1, 1, 2, 1, 0, 2, 2, 1, 2, 0}
	newModel := func() transitionModel { return newBigramTransitions(stateS, 0.3) }
	for i := 1; i < len(states)-1; i++ {
		if states[i] == 0 {
			continue
		}
		assert.InDeltaSlice(t, exactConditional(newModel, states, i, stateS), collapsedConditional(newModel(), states, i, stateS), 1e-9, "position %v", i)
	}
}

func TestTrigramCollapsedConditional(t *testing.T) {
	stateS := 3
	states := []int{0, 0, 1, 1, 1, 1, 2, 1, 0, 0, 2, 2, 2, 1, 0, 0}
	newModel := func() transitionModel { return newTrigramTransitions(stateS, 0.2) }
	for i := 2; i < len(states)-2; i++ {
		if states[i] == 0 {
			continue
		}
		assert.InDeltaSlice(t, exactConditional(newModel, states, i, stateS), collapsedConditional(newModel(), states, i, stateS), 1e-9, "position %v", i)
	}
}

func TestTransitionCountConservation(t *testing.T) {
	states := []int{0, 0, 1, 2, 2, 1, 0, 0, 2, 1, 0, 0}
	stateCounts := make([]int, 3)
	for _, s := range states {
		stateCounts[s]++
	}
	tm := newTrigramTransitions(3, 0.1)
	fillTransitions(tm, states)

	counts, rows := tm.bigramCounts()
	for prev := 0; prev < 3; prev++ {
		sum := 0
		for cur := 0; cur < 3; cur++ {
			sum += counts[prev*3+cur]
		}
		assert.Equal(t, rows[prev], sum)
	}
	// every token but the last starts one bigram; every token but the first ends one
	for s := 1; s < 3; s++ {
		incoming := 0
		for prev := 0; prev < 3; prev++ {
			incoming += counts[prev*3+s]
		}
		assert.Equal(t, stateCounts[s], incoming)
		assert.Equal(t, stateCounts[s], rows[s])
	}
	for pair := 0; pair < 9; pair++ {
		sum := 0
		for cur := 0; cur < 3; cur++ {
			sum += tm.trigrams[pair*3+cur]
		}
		assert.Equal(t, tm.pairs[pair], sum)
	}
}

func TestTransitionUnderflow(t *testing.T) {
	tm := newBigramTransitions(3, 0.1)
	err := tm.update([]int{0, 1, 0}, 1, -1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyCount))
}

func TestDirichletMultinomialLogProb(t *testing.T) {
	// counts (2, 1) under Dirichlet(1, 1): Gamma(2) Gamma(3) Gamma(2) / Gamma(5); the empty row adds nothing
	want := math.Log(1.0 * 2.0 * 1.0 / 24.0)
	assert.InDelta(t, want, dirichletMultinomialLogProb([]int{2, 1, 0, 0}, 2, 1.0), 1e-12)
}
