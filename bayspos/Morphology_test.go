package bayspos

import (
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerateSplits(t *testing.T) {
	for _, word := range []string{"walked", "a", "über", "食べた"} {
		splits := EnumerateSplits(word)
		require.Len(t, splits, utf8.RuneCountInString(word)+1, word)
		assert.Equal(t, Split{Stem: "", Affix: word}, splits[0])
		assert.Equal(t, Split{Stem: word, Affix: ""}, splits[len(splits)-1])
		for _, split := range splits {
			assert.Equal(t, word, split.Stem+split.Affix)
		}
	}
	assert.Equal(t, Split{Stem: "üb", Affix: "er"}, EnumerateSplits("über")[2])
}

func newTestMorphEmitter(morph MorphKind, topics bool) (*morphEmitter, *Vocabulary) {
	vocab := NewVocabulary()
	for _, word := range []string{"walked", "walks", "talked", "the"} {
		vocab.Add(word)
	}
	return newMorphEmitter(morph, DefaultConfig().Hyper, vocab, 4, 2, topics), vocab
}

func TestMorphEmitterIncDecInverse(t *testing.T) {
	for _, morph := range []MorphKind{MorphDP, MorphHDP} {
		me, _ := newTestMorphEmitter(morph, true)
		me.inc(1, 1, 0, 4)
		me.inc(2, 1, 1, 4)
		me.inc(4, 3, 0, 3)
		before := me.prob(3, 1, 0)
		beforeWeights := append([]float64(nil), me.splitWeights(3, 1, 0, nil)...)
		affixes := me.affixLexicon.table.Entries()
		stems := me.stemLexicon.table.Entries()

		me.inc(3, 1, 0, 4)
		assert.Greater(t, me.prob(3, 1, 0), before)
		require.NoError(t, me.dec(3, 1, 0, 4))
		assert.Equal(t, before, me.prob(3, 1, 0), morph.String())
		assert.Equal(t, beforeWeights, me.splitWeights(3, 1, 0, nil))
		assert.Equal(t, affixes, me.affixLexicon.table.Entries())
		assert.Equal(t, stems, me.stemLexicon.table.Entries())

		assert.Equal(t, 2, me.stateTotal(1))
		assert.Equal(t, 1, me.stateTotal(3))
		err := me.dec(3, 2, 0, 1)
		assert.True(t, errors.Is(err, ErrEmptyCount))
	}
}

func TestMorphEmitterClasses(t *testing.T) {
	me, _ := newTestMorphEmitter(MorphHDP, true)
	// content states condition stems on the topic, function states on the state
	assert.Equal(t, 4+1, me.class(1, 1))
	assert.Equal(t, 3, me.class(3, 1))

	me.inc(1, 1, 1, 4)
	assert.Equal(t, 1, me.stems.Count(5))
	assert.Equal(t, 0, me.stems.Count(1))

	plain, _ := newTestMorphEmitter(MorphHDP, false)
	assert.Equal(t, 1, plain.class(1, 1))
}

func TestMorphEmitterSplitsFavorSharedAffix(t *testing.T) {
	me, _ := newTestMorphEmitter(MorphDP, false)
	for n := 0; n < 20; n++ {
		// walk+ed
		me.inc(1, 1, 0, 4)
	}
	weights := me.splitWeights(3, 1, 0, nil)
	require.Len(t, weights, 7)
	// talk+ed shares the affix of walk+ed
	best := 0
	for k, w := range weights {
		if w > weights[best] {
			best = k
		}
	}
	assert.Equal(t, 4, best)
}

func TestMorphEmitterRebind(t *testing.T) {
	me, vocab := newTestMorphEmitter(MorphHDP, false)
	me.inc(1, 1, 0, 4)
	test := vocab.Clone()
	unseen := test.Add("jumped")
	rebound := me.rebind(test)
	assert.Greater(t, rebound.prob(unseen, 1, 0), 0.0)
	assert.Len(t, rebound.splitWeights(unseen, 1, 0, nil), 7)
	assert.Panics(t, func() { me.prob(unseen, 1, 0) })
	assert.Equal(t, me.prob(1, 1, 0), rebound.prob(1, 1, 0))
}
