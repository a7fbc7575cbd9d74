package bayspos

import "fmt"

// emitter owns the emission counts of a model. z is ignored by emitters without topics and
// split by emitters without morphology.
type emitter interface {
	prob(w int, s int, z int) float64
	// splitWeights returns one unnormalized weight per split of w, or nil when the emitter does not split words.
	splitWeights(w int, s int, z int, buf []float64) []float64
	inc(w int, s int, z int, split int)
	dec(w int, s int, z int, split int) error
	// rebind returns an emitter reading the same counts for words of vocab, which extends the training vocabulary.
	rebind(vocab *Vocabulary) emitter
	// stateTotal returns the number of tokens emitted by state s.
	stateTotal(s int) int
	// flat returns the state-word counts when the emitter has them.
	flat() *wordEmitter
}

func isContentState(s int, stateC int) bool {
	return s >= 1 && s <= stateC
}

// wordEmitter is p(w | s) = (n(s, w) + delta) / (n(s) + W * delta).
type wordEmitter struct {
	stateS int
	wordW  int
	delta  float64
	wdelta float64
	counts []int // s*W + w
	totals []int
}

func newWordEmitter(stateS int, wordW int, delta float64) *wordEmitter {
	return &wordEmitter{
		stateS: stateS,
		wordW:  wordW,
		delta:  delta,
		wdelta: float64(wordW) * delta,
		counts: make([]int, stateS*wordW),
		totals: make([]int, stateS),
	}
}

func (we *wordEmitter) count(w int, s int) int {
	if w >= we.wordW {
		return 0
	}
	return we.counts[s*we.wordW+w]
}

func (we *wordEmitter) prob(w int, s int, z int) float64 {
	return (float64(we.count(w, s)) + we.delta) / (float64(we.totals[s]) + we.wdelta)
}

func (we *wordEmitter) splitWeights(w int, s int, z int, buf []float64) []float64 {
	return nil
}

func (we *wordEmitter) inc(w int, s int, z int, split int) {
	if w >= we.wordW {
		errMsg := fmt.Sprintf("emission error. word id (%v) is not in the training vocabulary (%v)", w, we.wordW)
		panic(errMsg)
	}
	we.counts[s*we.wordW+w]++
	we.totals[s]++
}

func (we *wordEmitter) dec(w int, s int, z int, split int) error {
	if we.count(w, s) == 0 {
		return fmt.Errorf("state %v word %v: %w", s, w, ErrEmptyCount)
	}
	we.counts[s*we.wordW+w]--
	we.totals[s]--
	return nil
}

func (we *wordEmitter) rebind(vocab *Vocabulary) emitter {
	return we
}

func (we *wordEmitter) stateTotal(s int) int {
	return we.totals[s]
}

func (we *wordEmitter) flat() *wordEmitter {
	return we
}

func (we *wordEmitter) setDelta(delta float64) {
	we.delta = delta
	we.wdelta = float64(we.wordW) * delta
}

func (we *wordEmitter) logLikelihood(delta float64) float64 {
	return dirichletMultinomialLogProb(we.counts, we.wordW, delta)
}

// topicEmitter draws the words of content states from the token's topic
// and the words of function states from the state.
type topicEmitter struct {
	words  *wordEmitter
	stateC int
	topicK int
	wordW  int
	beta   float64
	wbeta  float64
	counts []int // z*W + w, content-state tokens only
	totals []int
	tokens []int // content-state tokens per state
}

func newTopicEmitter(stateS int, stateC int, topicK int, wordW int, beta float64, delta float64) *topicEmitter {
	return &topicEmitter{
		words:  newWordEmitter(stateS, wordW, delta),
		stateC: stateC,
		topicK: topicK,
		wordW:  wordW,
		beta:   beta,
		wbeta:  float64(wordW) * beta,
		counts: make([]int, topicK*wordW),
		totals: make([]int, topicK),
		tokens: make([]int, stateS),
	}
}

func (te *topicEmitter) topicCount(w int, z int) int {
	if w >= te.wordW {
		return 0
	}
	return te.counts[z*te.wordW+w]
}

// topicProb returns phi_z(w).
func (te *topicEmitter) topicProb(w int, z int) float64 {
	return (float64(te.topicCount(w, z)) + te.beta) / (float64(te.totals[z]) + te.wbeta)
}

func (te *topicEmitter) prob(w int, s int, z int) float64 {
	if isContentState(s, te.stateC) {
		return te.topicProb(w, z)
	}
	return te.words.prob(w, s, z)
}

func (te *topicEmitter) splitWeights(w int, s int, z int, buf []float64) []float64 {
	return nil
}

func (te *topicEmitter) inc(w int, s int, z int, split int) {
	if !isContentState(s, te.stateC) {
		te.words.inc(w, s, z, split)
		return
	}
	if w >= te.wordW {
		errMsg := fmt.Sprintf("emission error. word id (%v) is not in the training vocabulary (%v)", w, te.wordW)
		panic(errMsg)
	}
	te.counts[z*te.wordW+w]++
	te.totals[z]++
	te.tokens[s]++
}

func (te *topicEmitter) dec(w int, s int, z int, split int) error {
	if !isContentState(s, te.stateC) {
		return te.words.dec(w, s, z, split)
	}
	if te.topicCount(w, z) == 0 || te.tokens[s] == 0 {
		return fmt.Errorf("topic %v word %v: %w", z, w, ErrEmptyCount)
	}
	te.counts[z*te.wordW+w]--
	te.totals[z]--
	te.tokens[s]--
	return nil
}

func (te *topicEmitter) rebind(vocab *Vocabulary) emitter {
	return te
}

func (te *topicEmitter) stateTotal(s int) int {
	if isContentState(s, te.stateC) {
		return te.tokens[s]
	}
	return te.words.totals[s]
}

func (te *topicEmitter) flat() *wordEmitter {
	return te.words
}
