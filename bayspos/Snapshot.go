package bayspos

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/oklog/ulid/v2"
)

type typeSlotSnapshot struct {
	Name  string
	Count int
}

type lexiconSnapshot struct {
	Types   []typeSlotSnapshot
	Free    []int
	Entries []CountEntry
}

// Snapshot is everything needed to resume sampling or run inference without the corpus.
// Slices are copies and every field is deterministic, so two snapshots of the same state are equal.
type Snapshot struct {
	RunID  string
	Config Config
	Hyper  HyperParameters

	Vocab        []string
	TagVocab     []string
	Padding      int
	NumSentences int
	NumDocuments int
	Lower        bool
	Words        []int
	Sentences    []int
	Documents    []int
	Tags         []int

	States []int
	Topics []int
	Splits []int

	StateCounts  []int
	Bigrams      []int
	BigramRows   []int
	Trigrams     []int
	TrigramPairs []int

	StateWords       []int
	StateWordTotals  []int
	TopicWords       []int
	TopicWordTotals  []int
	TopicStateTokens []int
	DocTopics        []int
	Affixes          *lexiconSnapshot
	Stems            *lexiconSnapshot

	Temperature float64
	Iteration   int
	Initialized bool
	RandomState []byte
}

func copyInts(xs []int) []int {
	if len(xs) == 0 {
		return nil
	}
	return append([]int(nil), xs...)
}

// snapshotLexicon returns nil for a lexicon that never held a type.
func snapshotLexicon(lexicon *Lexicon) *lexiconSnapshot {
	if lexicon.types.Capacity() == 0 {
		return nil
	}
	ls := &lexiconSnapshot{Free: copyInts(lexicon.types.free), Entries: lexicon.table.Entries()}
	for _, slot := range lexicon.types.slots {
		ls.Types = append(ls.Types, typeSlotSnapshot{Name: slot.name, Count: slot.count})
	}
	return ls
}

func restoreLexicon(lexicon *Lexicon, ls *lexiconSnapshot) {
	lexicon.table = NewCountTable(lexicon.table.Depth())
	lexicon.types = NewTypeIndex()
	if ls == nil {
		return
	}
	for id, slot := range ls.Types {
		lexicon.types.slots = append(lexicon.types.slots, typeSlot{name: slot.Name, count: slot.Count})
		if slot.Count > 0 {
			lexicon.types.ids[slot.Name] = id
		}
	}
	lexicon.types.free = copyInts(ls.Free)
	for _, entry := range ls.Entries {
		lexicon.table.Add(entry.Path, entry.Key, entry.Count)
	}
}

// Snapshot returns a copy of the model state.
func (bhmm *BHMM) Snapshot() *Snapshot {
	data := bhmm.train.data
	snap := &Snapshot{
		RunID:        bhmm.RunID(),
		Config:       bhmm.config,
		Hyper:        bhmm.hyper,
		Vocab:        append([]string(nil), data.Vocab.words...),
		TagVocab:     append([]string(nil), data.TagVocab.words...),
		Padding:      data.Padding,
		NumSentences: data.NumSentences,
		NumDocuments: data.NumDocuments,
		Lower:        data.Lower,
		Words:        copyInts(data.Words),
		Sentences:    copyInts(data.Sentences),
		Documents:    copyInts(data.Documents),
		Tags:         copyInts(data.Tags),
		States:       copyInts(bhmm.train.states),
		Topics:       copyInts(bhmm.train.topics),
		Splits:       copyInts(bhmm.train.splits),
		DocTopics:    copyInts(bhmm.train.docTopic),
		StateCounts:  copyInts(bhmm.stateCounts),
		Temperature:  bhmm.temperature,
		Iteration:    bhmm.iteration,
		Initialized:  bhmm.initialized,
	}
	switch trans := bhmm.trans.(type) {
	case *bigramTransitions:
		snap.Bigrams, snap.BigramRows = copyInts(trans.counts), copyInts(trans.rows)
	case *trigramTransitions:
		snap.Bigrams, snap.BigramRows = copyInts(trans.counts), copyInts(trans.rows)
		snap.Trigrams, snap.TrigramPairs = copyInts(trans.trigrams), copyInts(trans.pairs)
	}
	switch emit := bhmm.emit.(type) {
	case *wordEmitter:
		snap.StateWords, snap.StateWordTotals = copyInts(emit.counts), copyInts(emit.totals)
	case *topicEmitter:
		snap.StateWords, snap.StateWordTotals = copyInts(emit.words.counts), copyInts(emit.words.totals)
		snap.TopicWords, snap.TopicWordTotals = copyInts(emit.counts), copyInts(emit.totals)
		snap.TopicStateTokens = copyInts(emit.tokens)
	case *morphEmitter:
		snap.Affixes = snapshotLexicon(emit.affixLexicon)
		snap.Stems = snapshotLexicon(emit.stemLexicon)
	}
	state, err := bhmm.pcg.MarshalBinary()
	if err != nil {
		errMsg := fmt.Sprintf("snapshot error. %v", err)
		panic(errMsg)
	}
	snap.RandomState = state
	return snap
}

type intRestore struct {
	name string
	dst  []int
	src  []int
}

func restoreInts(name string, dst []int, src []int) error {
	if len(src) == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	if len(dst) != len(src) {
		return fmt.Errorf("snapshot %v has %v entries, the model %v: %w", name, len(src), len(dst), ErrFormat)
	}
	copy(dst, src)
	return nil
}

// Restore rebuilds the model saved in snap.
func Restore(snap *Snapshot) (*BHMM, error) {
	modelConfig, err := LookupModel(snap.Config.Model)
	if err != nil {
		return nil, err
	}
	data := &DataContainer{
		Words:        copyInts(snap.Words),
		Sentences:    copyInts(snap.Sentences),
		Documents:    copyInts(snap.Documents),
		Tags:         copyInts(snap.Tags),
		Vocab:        newVocabularyFromWords(snap.Vocab),
		TagVocab:     newVocabularyFromWords(snap.TagVocab),
		Padding:      snap.Padding,
		NumSentences: snap.NumSentences,
		NumDocuments: snap.NumDocuments,
		Lower:        snap.Lower,
	}
	if err := validate(modelConfig, snap.Config, data); err != nil {
		return nil, err
	}
	bhmm := newBHMM(modelConfig, snap.Config, data)

	runID, err := ulid.ParseStrict(snap.RunID)
	if err != nil {
		return nil, fmt.Errorf("snapshot run id %q: %w", snap.RunID, err)
	}
	bhmm.runID = runID
	bhmm.hyper = snap.Hyper
	bhmm.trans.setHyperParameter(snap.Hyper.Gamma)
	if words := bhmm.emit.flat(); words != nil {
		words.setDelta(snap.Hyper.Delta)
	}
	bhmm.temperature = snap.Temperature
	bhmm.iteration = snap.Iteration
	bhmm.initialized = snap.Initialized

	restores := []intRestore{
		{"states", bhmm.train.states, snap.States},
		{"topics", bhmm.train.topics, snap.Topics},
		{"splits", bhmm.train.splits, snap.Splits},
		{"document topics", bhmm.train.docTopic, snap.DocTopics},
		{"state counts", bhmm.stateCounts, snap.StateCounts},
	}
	switch trans := bhmm.trans.(type) {
	case *bigramTransitions:
		restores = append(restores,
			intRestore{"bigrams", trans.counts, snap.Bigrams},
			intRestore{"bigram rows", trans.rows, snap.BigramRows})
	case *trigramTransitions:
		restores = append(restores,
			intRestore{"bigrams", trans.counts, snap.Bigrams},
			intRestore{"bigram rows", trans.rows, snap.BigramRows},
			intRestore{"trigrams", trans.trigrams, snap.Trigrams},
			intRestore{"trigram pairs", trans.pairs, snap.TrigramPairs})
	}
	for _, r := range restores {
		if err := restoreInts(r.name, r.dst, r.src); err != nil {
			return nil, err
		}
	}

	switch emit := bhmm.emit.(type) {
	case *wordEmitter:
		err = restoreEmitterCounts(emit, snap.StateWords, snap.StateWordTotals)
	case *topicEmitter:
		err = restoreEmitterCounts(emit.words, snap.StateWords, snap.StateWordTotals)
		if err == nil {
			err = restoreInts("topic words", emit.counts, snap.TopicWords)
		}
		if err == nil {
			err = restoreInts("topic word totals", emit.totals, snap.TopicWordTotals)
		}
		if err == nil {
			err = restoreInts("topic state tokens", emit.tokens, snap.TopicStateTokens)
		}
	case *morphEmitter:
		restoreLexicon(emit.affixLexicon, snap.Affixes)
		restoreLexicon(emit.stemLexicon, snap.Stems)
	}
	if err != nil {
		return nil, err
	}

	if err := bhmm.pcg.UnmarshalBinary(snap.RandomState); err != nil {
		return nil, fmt.Errorf("snapshot random state: %w", err)
	}
	return bhmm, nil
}

func restoreEmitterCounts(words *wordEmitter, counts []int, totals []int) error {
	if err := restoreInts("state words", words.counts, counts); err != nil {
		return err
	}
	return restoreInts("state word totals", words.totals, totals)
}

// Save writes the gob-encoded, gzip-compressed snapshot of bhmm to path.
func (bhmm *BHMM) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save %v: %w", path, err)
	}
	zw := gzip.NewWriter(f)
	if err := gob.NewEncoder(zw).Encode(bhmm.Snapshot()); err != nil {
		f.Close()
		return fmt.Errorf("save %v: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("save %v: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save %v: %w", path, err)
	}
	return nil
}

// Load reads a model written by Save.
func Load(path string) (*BHMM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %v: %w", path, err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("load %v: %w", path, err)
	}
	defer zr.Close()
	snap := new(Snapshot)
	if err := gob.NewDecoder(zr).Decode(snap); err != nil {
		return nil, fmt.Errorf("load %v: %w", path, err)
	}
	bhmm, err := Restore(snap)
	if err != nil {
		return nil, fmt.Errorf("load %v: %w", path, err)
	}
	return bhmm, nil
}
