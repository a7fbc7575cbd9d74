package bayspos

import (
	"fmt"
	"math"
)

// transitionModel keeps the n-gram state counts of a token stream.
// An n-gram "ends at" position k when k is its last token.
type transitionModel interface {
	order() int
	// update adds delta to every n-gram ending at k.
	update(states []int, k int, delta int) error
	// weight returns the transition part of p(states[i] = j | rest). corrected applies the
	// collapsed indicator terms and is false when the counts do not contain the stream.
	weight(states []int, i int, j int, corrected bool) float64
	// forwardWeight uses the left context only.
	forwardWeight(states []int, i int, j int) float64
	bigramCounts() ([]int, []int)
	hyperParameter() float64
	setHyperParameter(gamma float64)
	logLikelihood(gamma float64) float64
}

func indicator(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

type bigramTransitions struct {
	stateS int
	gamma  float64
	sgamma float64
	counts []int // prev*S + cur
	rows   []int // transitions out of prev
}

func newBigramTransitions(stateS int, gamma float64) *bigramTransitions {
	return &bigramTransitions{
		stateS: stateS,
		gamma:  gamma,
		sgamma: float64(stateS) * gamma,
		counts: make([]int, stateS*stateS),
		rows:   make([]int, stateS),
	}
}

func (bt *bigramTransitions) order() int {
	return 1
}

func (bt *bigramTransitions) update(states []int, k int, delta int) error {
	if k < 1 || k >= len(states) {
		return nil
	}
	prev, cur := states[k-1], states[k]
	idx := prev*bt.stateS + cur
	if bt.counts[idx]+delta < 0 {
		return fmt.Errorf("bigram (%v, %v) at %v: %w", prev, cur, k, ErrEmptyCount)
	}
	bt.counts[idx] += delta
	bt.rows[prev] += delta
	return nil
}

func (bt *bigramTransitions) prob(prev, cur int, numExtra, denExtra float64) float64 {
	return (float64(bt.counts[prev*bt.stateS+cur]) + numExtra + bt.gamma) / (float64(bt.rows[prev]) + denExtra + bt.sgamma)
}

func (bt *bigramTransitions) weight(states []int, i int, j int, corrected bool) float64 {
	p, n := states[i-1], states[i+1]
	first := bt.prob(p, j, 0.0, 0.0)
	if !corrected {
		return first * bt.prob(j, n, 0.0, 0.0)
	}
	return first * bt.prob(j, n, indicator(p == j && j == n), indicator(p == j))
}

func (bt *bigramTransitions) forwardWeight(states []int, i int, j int) float64 {
	return bt.prob(states[i-1], j, 0.0, 0.0)
}

func (bt *bigramTransitions) bigramCounts() ([]int, []int) {
	return bt.counts, bt.rows
}

func (bt *bigramTransitions) hyperParameter() float64 {
	return bt.gamma
}

func (bt *bigramTransitions) setHyperParameter(gamma float64) {
	bt.gamma = gamma
	bt.sgamma = float64(bt.stateS) * gamma
}

func (bt *bigramTransitions) logLikelihood(gamma float64) float64 {
	return dirichletMultinomialLogProb(bt.counts, bt.stateS, gamma)
}

type trigramTransitions struct {
	*bigramTransitions
	trigrams []int // (pprev*S + prev)*S + cur
	pairs    []int // trigrams whose context is (pprev, prev)
}

func newTrigramTransitions(stateS int, gamma float64) *trigramTransitions {
	return &trigramTransitions{
		bigramTransitions: newBigramTransitions(stateS, gamma),
		trigrams:          make([]int, stateS*stateS*stateS),
		pairs:             make([]int, stateS*stateS),
	}
}

func (tt *trigramTransitions) order() int {
	return 2
}

func (tt *trigramTransitions) update(states []int, k int, delta int) error {
	if err := tt.bigramTransitions.update(states, k, delta); err != nil {
		return err
	}
	if k < 2 || k >= len(states) {
		return nil
	}
	pair := states[k-2]*tt.stateS + states[k-1]
	idx := pair*tt.stateS + states[k]
	if tt.trigrams[idx]+delta < 0 {
		return fmt.Errorf("trigram (%v, %v, %v) at %v: %w", states[k-2], states[k-1], states[k], k, ErrEmptyCount)
	}
	tt.trigrams[idx] += delta
	tt.pairs[pair] += delta
	return nil
}

func (tt *trigramTransitions) prob(a, b, c int, numExtra, denExtra float64) float64 {
	pair := a*tt.stateS + b
	return (float64(tt.trigrams[pair*tt.stateS+c]) + numExtra + tt.gamma) / (float64(tt.pairs[pair]) + denExtra + tt.sgamma)
}

// weight multiplies the three trigrams that contain position i. Each correction counts how many
// of the trigrams added before it, in stream order, are equal to it.
func (tt *trigramTransitions) weight(states []int, i int, j int, corrected bool) float64 {
	a, b := states[i-2], states[i-1]
	c, d := states[i+1], states[i+2]
	first := tt.prob(a, b, j, 0.0, 0.0)
	if !corrected {
		return first * tt.prob(b, j, c, 0.0, 0.0) * tt.prob(j, c, d, 0.0, 0.0)
	}
	second := tt.prob(b, j, c,
		indicator(a == b && b == j && j == c),
		indicator(a == b && b == j))
	third := tt.prob(j, c, d,
		indicator(a == j && b == c && j == d)+indicator(b == j && j == c && c == d),
		indicator(a == j && b == c)+indicator(b == j && j == c))
	return first * second * third
}

func (tt *trigramTransitions) forwardWeight(states []int, i int, j int) float64 {
	return tt.prob(states[i-2], states[i-1], j, 0.0, 0.0)
}

func (tt *trigramTransitions) logLikelihood(gamma float64) float64 {
	return dirichletMultinomialLogProb(tt.trigrams, tt.stateS, gamma)
}

// dirichletMultinomialLogProb returns the log marginal likelihood of rows of width counts
// under a symmetric Dirichlet(prior) on each row.
func dirichletMultinomialLogProb(counts []int, width int, prior float64) float64 {
	lgammaPrior, _ := math.Lgamma(prior)
	lgammaRowPrior, _ := math.Lgamma(prior * float64(width))
	logProb := 0.0
	for start := 0; start < len(counts); start += width {
		total := 0
		for _, c := range counts[start : start+width] {
			if c == 0 {
				continue
			}
			total += c
			lg, _ := math.Lgamma(float64(c) + prior)
			logProb += lg - lgammaPrior
		}
		if total == 0 {
			continue
		}
		lg, _ := math.Lgamma(float64(total) + prior*float64(width))
		logProb += lgammaRowPrior - lg
	}
	return logProb
}
