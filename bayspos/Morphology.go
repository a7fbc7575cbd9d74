package bayspos

import "fmt"

// Split is one stem/affix decomposition of a word.
type Split struct {
	Stem  string
	Affix string
}

// EnumerateSplits returns the len(word)+1 splits of word at every rune offset,
// from the empty stem to the empty affix.
func EnumerateSplits(word string) []Split {
	runes := []rune(word)
	splits := make([]Split, 0, len(runes)+1)
	for k := 0; k <= len(runes); k++ {
		splits = append(splits, Split{Stem: string(runes[:k]), Affix: string(runes[k:])})
	}
	return splits
}

func buildSplits(vocab *Vocabulary) [][]Split {
	splits := make([][]Split, vocab.Size())
	for id := 1; id < vocab.Size(); id++ {
		splits[id] = EnumerateSplits(vocab.Word(id))
	}
	return splits
}

// morphEmitter generates a word as stem + affix.
// p(w | s, z) = sum over splits of p(affix | s) p(stem | class), where class is s,
// or stateS + z for the content states of topic models.
type morphEmitter struct {
	stateS int
	stateC int
	topics bool

	affixLexicon *Lexicon
	stemLexicon  *Lexicon
	affixes      *DP
	stems        *DP

	splits [][]Split // by word id
}

func newMorphEmitter(morph MorphKind, hyper HyperParameters, vocab *Vocabulary, stateS int, stateC int, topics bool) *morphEmitter {
	splits := buildSplits(vocab)
	stemSupport := make(map[string]struct{})
	affixSupport := make(map[string]struct{})
	alphabet := make(map[rune]struct{})
	for id := 1; id < len(splits); id++ {
		for _, split := range splits[id] {
			stemSupport[split.Stem] = struct{}{}
			affixSupport[split.Affix] = struct{}{}
		}
		for _, r := range vocab.Word(id) {
			alphabet[r] = struct{}{}
		}
	}
	if len(alphabet) == 0 {
		alphabet[0] = struct{}{}
	}

	affixLexicon := NewLexicon(1)
	stemLexicon := NewLexicon(1)
	var affixBase, stemBase BaseDistribution
	switch morph {
	case MorphDP:
		// one extra support slot for strings of unseen test words
		affixBase = NewDirichletBase(affixLexicon, hyper.MuAffix, len(affixSupport)+1)
		stemBase = NewDirichletBase(stemLexicon, hyper.MuStem, len(stemSupport)+1)
	case MorphHDP:
		affixBase = NewHierarchicalBase(affixLexicon, hyper.MuAffix, NewCharBase(hyper.AffixBoundaryProb, len(alphabet)))
		stemBase = NewHierarchicalBase(stemLexicon, hyper.MuStem, NewCharBase(hyper.StemBoundaryProb, len(alphabet)))
	default:
		errMsg := fmt.Sprintf("morphology error. %v is not a morphology model", morph)
		panic(errMsg)
	}
	return &morphEmitter{
		stateS:       stateS,
		stateC:       stateC,
		topics:       topics,
		affixLexicon: affixLexicon,
		stemLexicon:  stemLexicon,
		affixes:      NewDP(affixLexicon, affixBase, hyper.Psi),
		stems:        NewDP(stemLexicon, stemBase, hyper.Xi),
		splits:       splits,
	}
}

func (me *morphEmitter) class(s int, z int) int {
	if me.topics && isContentState(s, me.stateC) {
		return me.stateS + z
	}
	return s
}

func (me *morphEmitter) wordSplits(w int) []Split {
	if w <= 0 || w >= len(me.splits) {
		errMsg := fmt.Sprintf("morphology error. word id (%v) has no splits", w)
		panic(errMsg)
	}
	return me.splits[w]
}

func (me *morphEmitter) prob(w int, s int, z int) float64 {
	c := me.class(s, z)
	numerator := 0.0
	for _, split := range me.wordSplits(w) {
		numerator += me.affixes.Numerator(s, split.Affix) * me.stems.Numerator(c, split.Stem)
	}
	return numerator / (me.affixes.Denominator(s) * me.stems.Denominator(c))
}

func (me *morphEmitter) splitWeights(w int, s int, z int, buf []float64) []float64 {
	c := me.class(s, z)
	splits := me.wordSplits(w)
	if cap(buf) < len(splits) {
		buf = make([]float64, len(splits))
	}
	buf = buf[:len(splits)]
	for k, split := range splits {
		buf[k] = me.affixes.Numerator(s, split.Affix) * me.stems.Numerator(c, split.Stem)
	}
	return buf
}

func (me *morphEmitter) inc(w int, s int, z int, split int) {
	sp := me.wordSplits(w)[split]
	me.affixes.Inc(s, sp.Affix)
	me.stems.Inc(me.class(s, z), sp.Stem)
}

func (me *morphEmitter) dec(w int, s int, z int, split int) error {
	sp := me.wordSplits(w)[split]
	if err := me.affixes.Dec(s, sp.Affix); err != nil {
		return fmt.Errorf("affix of state %v: %w", s, err)
	}
	if err := me.stems.Dec(me.class(s, z), sp.Stem); err != nil {
		return fmt.Errorf("stem of class %v: %w", me.class(s, z), err)
	}
	return nil
}

func (me *morphEmitter) rebind(vocab *Vocabulary) emitter {
	rebound := *me
	rebound.splits = buildSplits(vocab)
	return &rebound
}

func (me *morphEmitter) stateTotal(s int) int {
	return me.affixes.Count(s)
}

func (me *morphEmitter) flat() *wordEmitter {
	return nil
}
