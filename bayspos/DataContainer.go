package bayspos

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Boundary is the reserved word and tag at id 0.
const Boundary = "<BOUNDARY>"

// PageBoundary is the marker line that starts a new document inside a file.
const PageBoundary = "<PAGEBOUNDARY>"

// ErrFormat is returned for input lines the corpus reader does not understand.
var ErrFormat = errors.New("unknown data format")

// Vocabulary is a bijective mapping between strings and dense ids. Id 0 is Boundary.
type Vocabulary struct {
	words []string
	ids   map[string]int
}

// NewVocabulary returns Vocabulary instance holding only Boundary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{words: []string{Boundary}, ids: map[string]int{Boundary: 0}}
}

func newVocabularyFromWords(words []string) *Vocabulary {
	vocab := &Vocabulary{words: append([]string(nil), words...), ids: make(map[string]int, len(words))}
	for i, word := range vocab.words {
		vocab.ids[word] = i
	}
	return vocab
}

// Add returns the id of word, assigning the next id if it is new.
func (vocab *Vocabulary) Add(word string) int {
	if id, ok := vocab.ids[word]; ok {
		return id
	}
	id := len(vocab.words)
	vocab.words = append(vocab.words, word)
	vocab.ids[word] = id
	return id
}

// ID returns the id of word and whether it is known.
func (vocab *Vocabulary) ID(word string) (int, bool) {
	id, ok := vocab.ids[word]
	return id, ok
}

// Word returns the string of id.
func (vocab *Vocabulary) Word(id int) string {
	if id < 0 || id >= len(vocab.words) {
		errMsg := fmt.Sprintf("vocabulary error. id (%v) out of range [0, %v)", id, len(vocab.words))
		panic(errMsg)
	}
	return vocab.words[id]
}

// Size returns the number of ids including Boundary.
func (vocab *Vocabulary) Size() int {
	return len(vocab.words)
}

// Clone returns a copy that can be extended without touching vocab.
func (vocab *Vocabulary) Clone() *Vocabulary {
	return newVocabularyFromWords(vocab.words)
}

// DataContainer holds the flat token stream of a corpus.
// Every sentence is framed by Padding boundary tokens, so the stream starts and ends with boundaries.
type DataContainer struct {
	Words     []int
	Sentences []int // -1 on boundary tokens
	Documents []int
	Tags      []int

	Vocab    *Vocabulary
	TagVocab *Vocabulary

	Padding      int
	NumSentences int
	NumDocuments int
	Lower        bool

	openDocument bool
}

// NewDataContainer returns an empty DataContainer over vocab and tagVocab.
// Passing nil creates fresh vocabularies; pass a clone of the training vocabulary for a test partition.
func NewDataContainer(padding int, vocab *Vocabulary, tagVocab *Vocabulary) *DataContainer {
	if padding < 1 {
		panic("range of padding is 1 to inf")
	}
	if vocab == nil {
		vocab = NewVocabulary()
	}
	if tagVocab == nil {
		tagVocab = NewVocabulary()
	}
	dataContainer := &DataContainer{Vocab: vocab, TagVocab: tagVocab, Padding: padding}
	dataContainer.pad()
	return dataContainer
}

func (dataContainer *DataContainer) pad() {
	doc := dataContainer.NumDocuments - 1
	if doc < 0 {
		doc = 0
	}
	for i := 0; i < dataContainer.Padding; i++ {
		dataContainer.Words = append(dataContainer.Words, 0)
		dataContainer.Sentences = append(dataContainer.Sentences, -1)
		dataContainer.Documents = append(dataContainer.Documents, doc)
		dataContainer.Tags = append(dataContainer.Tags, 0)
	}
}

// NewDocument starts a new document; following sentences belong to it.
func (dataContainer *DataContainer) NewDocument() {
	dataContainer.NumDocuments++
	dataContainer.openDocument = true
}

// AddSentence appends a sentence to the current document. tags may be nil. Boundary is not a valid word.
func (dataContainer *DataContainer) AddSentence(words []string, tags []string) {
	if len(words) == 0 {
		return
	}
	if tags != nil && len(tags) != len(words) {
		errMsg := fmt.Sprintf("AddSentence error. len(words) (%v) != len(tags) (%v)", len(words), len(tags))
		panic(errMsg)
	}
	if !dataContainer.openDocument {
		dataContainer.NewDocument()
	}
	doc := dataContainer.NumDocuments - 1
	for i, word := range words {
		if dataContainer.Lower {
			word = strings.ToLower(word)
		}
		if word == Boundary {
			errMsg := fmt.Sprintf("AddSentence error. %v is reserved for padding", Boundary)
			panic(errMsg)
		}
		dataContainer.Words = append(dataContainer.Words, dataContainer.Vocab.Add(word))
		dataContainer.Sentences = append(dataContainer.Sentences, dataContainer.NumSentences)
		dataContainer.Documents = append(dataContainer.Documents, doc)
		tag := 0
		if tags != nil {
			tag = dataContainer.TagVocab.Add(tags[i])
		}
		dataContainer.Tags = append(dataContainer.Tags, tag)
	}
	dataContainer.NumSentences++
	dataContainer.pad()
}

// Size returns the number of tokens including boundaries.
func (dataContainer *DataContainer) Size() int {
	return len(dataContainer.Words)
}

// NumTokens returns the number of non-boundary tokens.
func (dataContainer *DataContainer) NumTokens() int {
	return len(dataContainer.Words) - dataContainer.Padding*(dataContainer.NumSentences+1)
}

// IsBoundary reports whether token i is a boundary.
func (dataContainer *DataContainer) IsBoundary(i int) bool {
	return dataContainer.Words[i] == 0
}

// NewDataContainerFromSents returns DataContainer instance holding sents as one document.
func NewDataContainerFromSents(sents [][]string, padding int) *DataContainer {
	dataContainer := NewDataContainer(padding, nil, nil)
	dataContainer.NewDocument()
	for _, sent := range sents {
		dataContainer.AddSentence(sent, nil)
	}
	return dataContainer
}

// Read appends one tagged file: one "word<TAB>tag" per line, a blank line ends a sentence,
// and a PageBoundary line starts a new document. The file itself starts a new document.
func (dataContainer *DataContainer) Read(r io.Reader, name string) error {
	dataContainer.NewDocument()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	words := make([]string, 0, 64)
	tags := make([]string, 0, 64)
	flush := func() {
		dataContainer.AddSentence(words, tags)
		words = words[:0]
		tags = tags[:0]
	}
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			flush()
			continue
		}
		if text == PageBoundary {
			flush()
			dataContainer.NewDocument()
			continue
		}
		fields := strings.Split(text, "\t")
		if fields[0] == Boundary {
			return fmt.Errorf("%v:%v: the word %v is reserved: %w", name, line, Boundary, ErrFormat)
		}
		switch len(fields) {
		case 1:
			words = append(words, fields[0])
			tags = append(tags, "")
		case 2:
			words = append(words, fields[0])
			tags = append(tags, fields[1])
		default:
			return fmt.Errorf("%v:%v: %v tab-separated fields: %w", name, line, len(fields), ErrFormat)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %v: %w", name, err)
	}
	flush()
	return nil
}

// ReadCorpus walks root recursively and reads every regular file in lexical order.
func (dataContainer *DataContainer) ReadCorpus(root string) error {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %v: %w", root, err)
	}
	sort.Strings(paths)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %v: %w", path, err)
		}
		err = dataContainer.Read(f, path)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
