package bayspos

import (
	"fmt"
	"sort"
)

// WordProb is a word with its posterior probability under one class.
type WordProb struct {
	Word string
	Prob float64
}

// ClassDistribution is the point estimate of one state or topic.
type ClassDistribution struct {
	Kind  string // "state" or "topic"
	ID    int
	Count int
	Words []WordProb
}

// Summary is the reporting view of a trained model.
type Summary struct {
	RunID       string
	Model       string
	Iteration   int
	Temperature float64
	Topics      []ClassDistribution
	States      []ClassDistribution
}

func topWords(vocab *Vocabulary, wordW int, n int, prob func(w int) float64) []WordProb {
	probs := make([]WordProb, 0, wordW)
	for w := 1; w < wordW; w++ {
		probs = append(probs, WordProb{Word: vocab.Word(w), Prob: prob(w)})
	}
	sort.SliceStable(probs, func(i, j int) bool { return probs[i].Prob > probs[j].Prob })
	if len(probs) > n {
		probs = probs[:n]
	}
	return probs
}

// stateTopicMixture returns P(z | s) = (n(s, z) + alpha) / (n(s) + K alpha) from the training assignments.
func (bhmm *BHMM) stateTopicMixture() [][]float64 {
	counts := make([][]int, bhmm.stateS)
	for s := range counts {
		counts[s] = make([]int, bhmm.topicK)
	}
	v := bhmm.train
	for i := range v.data.Words {
		if v.data.IsBoundary(i) {
			continue
		}
		counts[v.states[i]][v.topics[i]]++
	}
	kalpha := float64(bhmm.topicK) * bhmm.hyper.Alpha
	mixture := make([][]float64, bhmm.stateS)
	for s := range mixture {
		total := 0
		for _, c := range counts[s] {
			total += c
		}
		mixture[s] = make([]float64, bhmm.topicK)
		for z, c := range counts[s] {
			mixture[s][z] = (float64(c) + bhmm.hyper.Alpha) / (float64(total) + kalpha)
		}
	}
	return mixture
}

// Normalize returns the topN words of every topic and state.
// Topics are finished first; the content states of topic models then mix the topic posteriors by P(z | s).
func (bhmm *BHMM) Normalize(topN int) *Summary {
	summary := &Summary{
		RunID:       bhmm.RunID(),
		Model:       bhmm.config.Model,
		Iteration:   bhmm.iteration,
		Temperature: bhmm.temperature,
	}
	vocab := bhmm.train.data.Vocab

	var phi [][]float64
	if bhmm.modelConfig.Topics {
		switch emit := bhmm.emit.(type) {
		case *topicEmitter:
			phi = make([][]float64, bhmm.topicK)
			for z := range phi {
				phi[z] = make([]float64, bhmm.wordW)
				for w := 1; w < bhmm.wordW; w++ {
					phi[z][w] = emit.topicProb(w, z)
				}
				summary.Topics = append(summary.Topics, ClassDistribution{
					Kind:  "topic",
					ID:    z,
					Count: emit.totals[z],
					Words: topWords(vocab, bhmm.wordW, topN, func(w int) float64 { return phi[z][w] }),
				})
			}
		case *morphEmitter:
			for z := 0; z < bhmm.topicK; z++ {
				class := bhmm.stateS + z
				summary.Topics = append(summary.Topics, ClassDistribution{
					Kind:  "topic",
					ID:    z,
					Count: emit.stems.Count(class),
					Words: emit.stems.Top(class, topN),
				})
			}
		}
	}

	var mixture [][]float64
	if bhmm.modelConfig.Topics {
		mixture = bhmm.stateTopicMixture()
	}
	for s := 1; s < bhmm.stateS; s++ {
		prob := func(w int) float64 { return bhmm.emit.prob(w, s, 0) }
		if bhmm.modelConfig.Topics && isContentState(s, bhmm.stateC) {
			prob = func(w int) float64 {
				p := 0.0
				for z, pz := range mixture[s] {
					if phi != nil {
						p += pz * phi[z][w]
					} else {
						p += pz * bhmm.emit.prob(w, s, z)
					}
				}
				return p
			}
		}
		summary.States = append(summary.States, ClassDistribution{
			Kind:  "state",
			ID:    s,
			Count: bhmm.stateCounts[s],
			Words: topWords(vocab, bhmm.wordW, topN, prob),
		})
	}
	return summary
}

// Tagging is a token stream with its sampled assignments.
type Tagging struct {
	Data   *DataContainer
	States []int
	Topics []int
	Splits []int
	StateS int
}

// CrossTab counts every real token by state and gold tag.
type CrossTab struct {
	Tags   []string
	Counts [][]int // state x tag
}

// CrossTab tabulates the states of tagging against the gold tags of its data.
func (tagging *Tagging) CrossTab() *CrossTab {
	tagVocab := tagging.Data.TagVocab
	crossTab := &CrossTab{Tags: make([]string, tagVocab.Size()), Counts: make([][]int, tagging.StateS)}
	for t := range crossTab.Tags {
		crossTab.Tags[t] = tagVocab.Word(t)
	}
	for s := range crossTab.Counts {
		crossTab.Counts[s] = make([]int, tagVocab.Size())
	}
	for i, s := range tagging.States {
		if tagging.Data.IsBoundary(i) {
			continue
		}
		if s < 0 || s >= tagging.StateS {
			errMsg := fmt.Sprintf("cross tabulation error. state (%v) at %v out of range", s, i)
			panic(errMsg)
		}
		crossTab.Counts[s][tagging.Data.Tags[i]]++
	}
	return crossTab
}

// CrossTab tabulates the training states against the gold tags.
func (bhmm *BHMM) CrossTab() *CrossTab {
	return bhmm.Assignments().CrossTab()
}
