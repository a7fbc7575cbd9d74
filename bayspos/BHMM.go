package bayspos

import (
	"context"
	cryptorand "crypto/rand"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cheggaaa/pb/v3"
	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
)

// view is one token stream with its assignments.
// A frozen view samples against the global counts without changing them; only its document-topic counts are live.
type view struct {
	data     *DataContainer
	states   []int
	topics   []int
	splits   []int
	docTopic []int // d*K + z
	emit     emitter
	frozen   bool
}

// BHMM is a Bayesian HMM over syntactic states, optionally with document topics and stem/affix emissions.
type BHMM struct {
	modelConfig ModelConfig
	config      Config
	hyper       HyperParameters

	stateC int
	stateF int
	stateS int
	topicK int
	wordW  int

	trans       transitionModel
	emit        emitter
	stateCounts []int

	train *view

	temperature float64
	iteration   int
	initialized bool

	pcg   *rand.PCG
	rng   *rand.Rand
	runID ulid.ULID

	weights []float64
}

func newBHMM(modelConfig ModelConfig, cfg Config, data *DataContainer) *BHMM {
	bhmm := new(BHMM)
	bhmm.modelConfig = modelConfig
	bhmm.config = cfg
	bhmm.hyper = cfg.Hyper
	bhmm.stateC = cfg.StateC
	bhmm.stateF = cfg.StateF
	bhmm.stateS = cfg.StateC + cfg.StateF + 1
	if modelConfig.Topics {
		bhmm.topicK = cfg.TopicK
	}
	bhmm.wordW = data.Vocab.Size()

	switch modelConfig.Order {
	case 1:
		bhmm.trans = newBigramTransitions(bhmm.stateS, cfg.Hyper.Gamma)
	case 2:
		bhmm.trans = newTrigramTransitions(bhmm.stateS, cfg.Hyper.Gamma)
	default:
		errMsg := fmt.Sprintf("range of order is 1 to 2, got %v", modelConfig.Order)
		panic(errMsg)
	}
	switch {
	case modelConfig.Morph != MorphNone:
		bhmm.emit = newMorphEmitter(modelConfig.Morph, cfg.Hyper, data.Vocab, bhmm.stateS, bhmm.stateC, modelConfig.Topics)
	case modelConfig.Topics:
		bhmm.emit = newTopicEmitter(bhmm.stateS, bhmm.stateC, bhmm.topicK, bhmm.wordW, cfg.Hyper.Beta, cfg.Hyper.Delta)
	default:
		bhmm.emit = newWordEmitter(bhmm.stateS, bhmm.wordW, cfg.Hyper.Delta)
	}
	bhmm.stateCounts = make([]int, bhmm.stateS)
	bhmm.train = bhmm.newView(data, bhmm.emit, false)

	bhmm.temperature = cfg.Schedule.InitialTemperature
	bhmm.pcg = rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	bhmm.rng = rand.New(bhmm.pcg)
	bhmm.runID = ulid.MustNew(ulid.Now(), ulid.Monotonic(cryptorand.Reader, 0))
	return bhmm
}

func (bhmm *BHMM) newView(data *DataContainer, emit emitter, frozen bool) *view {
	v := &view{data: data, emit: emit, frozen: frozen, states: make([]int, data.Size())}
	if bhmm.modelConfig.Topics {
		v.topics = make([]int, data.Size())
		v.docTopic = make([]int, data.NumDocuments*bhmm.topicK)
	}
	if bhmm.modelConfig.Morph != MorphNone {
		v.splits = make([]int, data.Size())
	}
	return v
}

func topicAt(v *view, i int) int {
	if v.topics == nil {
		return 0
	}
	return v.topics[i]
}

func splitAt(v *view, i int) int {
	if v.splits == nil {
		return 0
	}
	return v.splits[i]
}

func (bhmm *BHMM) buffer(n int) []float64 {
	if cap(bhmm.weights) < n {
		bhmm.weights = make([]float64, n)
	}
	return bhmm.weights[:n]
}

func (bhmm *BHMM) draw(weights []float64, annealer Annealer) int {
	total := annealer.Anneal(weights)
	return annealer.Select(weights, total, bhmm.rng)
}

// sampleTopic draws z with weight (n(d, z) + alpha) p(w | s, z). Function states only see the document term.
func (bhmm *BHMM) sampleTopic(v *view, w int, d int, s int, annealer Annealer) int {
	weights := bhmm.buffer(bhmm.topicK)
	content := isContentState(s, bhmm.stateC)
	for z := range weights {
		weights[z] = float64(v.docTopic[d*bhmm.topicK+z]) + bhmm.hyper.Alpha
		if content {
			weights[z] *= v.emit.prob(w, s, z)
		}
	}
	return bhmm.draw(weights, annealer)
}

// sampleState draws one of the states 1..S-1. forward limits the transition term to the left context.
func (bhmm *BHMM) sampleState(v *view, i int, w int, z int, annealer Annealer, forward bool) int {
	weights := bhmm.buffer(bhmm.stateS - 1)
	for j := 1; j < bhmm.stateS; j++ {
		var transition float64
		if forward {
			transition = bhmm.trans.forwardWeight(v.states, i, j)
		} else {
			transition = bhmm.trans.weight(v.states, i, j, !v.frozen)
		}
		weights[j-1] = v.emit.prob(w, j, z) * transition
	}
	return bhmm.draw(weights, annealer) + 1
}

func (bhmm *BHMM) sampleSplit(v *view, w int, s int, z int, annealer Annealer) int {
	weights := v.emit.splitWeights(w, s, z, bhmm.weights)
	if weights == nil {
		return 0
	}
	if cap(weights) > cap(bhmm.weights) {
		bhmm.weights = weights
	}
	return bhmm.draw(weights, annealer)
}

// remove takes token i out of every live count.
func (bhmm *BHMM) remove(v *view, i int) error {
	s := v.states[i]
	if err := v.emit.dec(v.data.Words[i], s, topicAt(v, i), splitAt(v, i)); err != nil {
		return fmt.Errorf("token %v: %w", i, err)
	}
	for k := i; k <= i+bhmm.trans.order(); k++ {
		if err := bhmm.trans.update(v.states, k, -1); err != nil {
			return fmt.Errorf("token %v: %w", i, err)
		}
	}
	if bhmm.stateCounts[s] == 0 {
		return fmt.Errorf("token %v state %v: %w", i, s, ErrEmptyCount)
	}
	bhmm.stateCounts[s]--
	return nil
}

// add puts token i back into every live count.
func (bhmm *BHMM) add(v *view, i int) error {
	s := v.states[i]
	v.emit.inc(v.data.Words[i], s, topicAt(v, i), splitAt(v, i))
	for k := i; k <= i+bhmm.trans.order(); k++ {
		if err := bhmm.trans.update(v.states, k, 1); err != nil {
			return fmt.Errorf("token %v: %w", i, err)
		}
	}
	bhmm.stateCounts[s]++
	return nil
}

// resample redraws the topic, state and split of token i in that order.
func (bhmm *BHMM) resample(v *view, i int, annealer Annealer) error {
	w, d := v.data.Words[i], v.data.Documents[i]
	if !v.frozen {
		if err := bhmm.remove(v, i); err != nil {
			return err
		}
	}
	z := 0
	if v.topics != nil {
		old := d*bhmm.topicK + v.topics[i]
		if v.docTopic[old] == 0 {
			return fmt.Errorf("token %v document %v topic %v: %w", i, d, v.topics[i], ErrEmptyCount)
		}
		v.docTopic[old]--
		z = bhmm.sampleTopic(v, w, d, v.states[i], annealer)
		v.topics[i] = z
		v.docTopic[d*bhmm.topicK+z]++
	}
	s := bhmm.sampleState(v, i, w, z, annealer, false)
	v.states[i] = s
	if v.splits != nil {
		v.splits[i] = bhmm.sampleSplit(v, w, s, z, annealer)
	}
	if v.frozen {
		return nil
	}
	return bhmm.add(v, i)
}

func (bhmm *BHMM) sweep(v *view, annealer Annealer) error {
	var bar *pb.ProgressBar
	if bhmm.config.Progress {
		bar = pb.StartNew(v.data.NumSentences)
		defer bar.Finish()
	}
	sentence := -1
	for i := range v.data.Words {
		if v.data.IsBoundary(i) {
			continue
		}
		if err := bhmm.resample(v, i, annealer); err != nil {
			return err
		}
		if bar != nil && v.data.Sentences[i] != sentence {
			sentence = v.data.Sentences[i]
			bar.Increment()
		}
	}
	return nil
}

// initializeView walks v left to right and draws every assignment from its forward conditional.
// A live view adds each position to the counts as soon as it is assigned.
func (bhmm *BHMM) initializeView(v *view, annealer Annealer) error {
	for i := range v.data.Words {
		if !v.data.IsBoundary(i) {
			w, d := v.data.Words[i], v.data.Documents[i]
			z := 0
			if v.topics != nil {
				z = bhmm.sampleTopic(v, w, d, 0, annealer)
				v.topics[i] = z
				v.docTopic[d*bhmm.topicK+z]++
			}
			s := bhmm.sampleState(v, i, w, z, annealer, true)
			v.states[i] = s
			if v.splits != nil {
				v.splits[i] = bhmm.sampleSplit(v, w, s, z, annealer)
			}
			if v.frozen {
				continue
			}
			v.emit.inc(w, s, z, splitAt(v, i))
		} else if v.frozen {
			continue
		}
		if err := bhmm.trans.update(v.states, i, 1); err != nil {
			return fmt.Errorf("initialize token %v: %w", i, err)
		}
		bhmm.stateCounts[v.states[i]]++
	}
	return nil
}

// Initialize draws the first assignment of every training token. Calling it again does nothing.
func (bhmm *BHMM) Initialize() error {
	if bhmm.initialized {
		return nil
	}
	if err := bhmm.initializeView(bhmm.train, NewTemperatureAnnealer(1.0)); err != nil {
		return err
	}
	bhmm.initialized = true
	glog.Infof("run %v: initialized %v tokens of %v documents, log likelihood %v", bhmm.runID, bhmm.train.data.NumTokens(), bhmm.train.data.NumDocuments, bhmm.LogLikelihood())
	return nil
}

// Train runs outer iterations until the schedule reaches its target temperature.
// Every outer iteration runs InnerIterations sweeps at a fixed temperature; checkpoint, if not nil, is called after each one.
// ctx is checked between outer iterations only.
func (bhmm *BHMM) Train(ctx context.Context, checkpoint func(*BHMM) error) error {
	if err := bhmm.Initialize(); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		annealer := NewTemperatureAnnealer(bhmm.temperature)
		for inner := 0; inner < bhmm.config.InnerIterations; inner++ {
			if err := bhmm.sweep(bhmm.train, annealer); err != nil {
				return fmt.Errorf("iteration %v sweep %v: %w", bhmm.iteration, inner, err)
			}
			if glog.V(1) {
				glog.Infof("iteration %v sweep %v log likelihood %v", bhmm.iteration, inner, bhmm.LogLikelihood())
			}
		}
		glog.Infof("iteration %v temperature %v log likelihood %v", bhmm.iteration, bhmm.temperature, bhmm.LogLikelihood())
		if bhmm.config.ResampleHyper {
			bhmm.ResampleHyperParameters(bhmm.config.HyperSteps)
		}
		bhmm.iteration++
		next, atTarget := bhmm.config.Schedule.Next(bhmm.temperature)
		bhmm.temperature = next
		if checkpoint != nil {
			if err := checkpoint(bhmm); err != nil {
				return fmt.Errorf("checkpoint after iteration %v: %w", bhmm.iteration, err)
			}
		}
		if atTarget {
			return nil
		}
	}
}

// Decode replaces every training assignment with its most probable value, DecodeIterations times.
func (bhmm *BHMM) Decode() error {
	if !bhmm.initialized {
		return fmt.Errorf("decode before initialization: %w", ErrConfig)
	}
	decoder := MaximumPosteriorDecoder{}
	for it := 0; it < max(1, bhmm.config.DecodeIterations); it++ {
		if err := bhmm.sweep(bhmm.train, decoder); err != nil {
			return fmt.Errorf("decode sweep %v: %w", it, err)
		}
	}
	return nil
}

// Infer tags test against the frozen training counts: iterations sampling sweeps at the target temperature,
// then one decoding sweep. test.Vocab must extend the training vocabulary.
func (bhmm *BHMM) Infer(ctx context.Context, test *DataContainer, iterations int) (*Tagging, error) {
	if !bhmm.initialized {
		return nil, fmt.Errorf("inference before initialization: %w", ErrConfig)
	}
	if test.Padding < bhmm.trans.order() {
		return nil, fmt.Errorf("padding %v is shorter than order %v: %w", test.Padding, bhmm.trans.order(), ErrConfig)
	}
	vocab := bhmm.train.data.Vocab
	if test.Vocab.Size() < vocab.Size() {
		return nil, fmt.Errorf("test vocabulary (%v) is smaller than the training vocabulary (%v): %w", test.Vocab.Size(), vocab.Size(), ErrConfig)
	}
	for id := 0; id < vocab.Size(); id++ {
		if test.Vocab.Word(id) != vocab.Word(id) {
			return nil, fmt.Errorf("test vocabulary does not extend the training vocabulary at id %v: %w", id, ErrConfig)
		}
	}

	v := bhmm.newView(test, bhmm.emit.rebind(test.Vocab), true)
	annealer := NewTemperatureAnnealer(bhmm.config.Schedule.TargetTemperature)
	if err := bhmm.initializeView(v, annealer); err != nil {
		return nil, err
	}
	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := bhmm.sweep(v, annealer); err != nil {
			return nil, fmt.Errorf("inference sweep %v: %w", it, err)
		}
	}
	if err := bhmm.sweep(v, MaximumPosteriorDecoder{}); err != nil {
		return nil, fmt.Errorf("inference decoding: %w", err)
	}
	glog.Infof("run %v: inferred %v test tokens", bhmm.runID, test.NumTokens())
	return &Tagging{Data: test, States: v.states, Topics: v.topics, Splits: v.splits, StateS: bhmm.stateS}, nil
}

// LogLikelihood returns the collapsed log likelihood of the transitions plus the predictive log probability
// of every training emission.
func (bhmm *BHMM) LogLikelihood() float64 {
	logLikelihood := bhmm.trans.logLikelihood(bhmm.hyper.Gamma)
	v := bhmm.train
	for i, w := range v.data.Words {
		if v.data.IsBoundary(i) {
			continue
		}
		logLikelihood += math.Log(v.emit.prob(w, v.states[i], topicAt(v, i)))
	}
	return logLikelihood
}

// Assignments returns the current training assignments.
func (bhmm *BHMM) Assignments() *Tagging {
	v := bhmm.train
	return &Tagging{Data: v.data, States: v.states, Topics: v.topics, Splits: v.splits, StateS: bhmm.stateS}
}

// StateCounts returns a copy of the token count of every state, boundaries included.
func (bhmm *BHMM) StateCounts() []int {
	return append([]int(nil), bhmm.stateCounts...)
}

// NumStates returns stateS.
func (bhmm *BHMM) NumStates() int {
	return bhmm.stateS
}

// ModelConfig returns the variant of the model.
func (bhmm *BHMM) ModelConfig() ModelConfig {
	return bhmm.modelConfig
}

// Config returns the configuration the model was built with.
func (bhmm *BHMM) Config() Config {
	return bhmm.config
}

// Hyper returns the current hyperparameters.
func (bhmm *BHMM) Hyper() HyperParameters {
	return bhmm.hyper
}

// Temperature returns the temperature of the next outer iteration.
func (bhmm *BHMM) Temperature() float64 {
	return bhmm.temperature
}

// Iteration returns the number of finished outer iterations.
func (bhmm *BHMM) Iteration() int {
	return bhmm.iteration
}

// RunID returns the id stamped on the run's logs, snapshots and exports.
func (bhmm *BHMM) RunID() string {
	return bhmm.runID.String()
}
