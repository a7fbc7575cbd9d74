package bayspos

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// BaseDistribution returns the escape probability of a key under a DP.
type BaseDistribution interface {
	Prob(key string) float64
}

type marginalCounter interface {
	TypeCount(key string) int
	Total() int
}

// DirichletBase is a one-level Dirichlet predictive rule over a finite support.
// p(key) = (count(key) + weight) / (total + weight * support)
type DirichletBase struct {
	counts  marginalCounter
	weight  float64
	support int
}

// NewDirichletBase returns DirichletBase instance reading the marginal counts of counts.
func NewDirichletBase(counts marginalCounter, weight float64, support int) *DirichletBase {
	if weight <= 0.0 {
		panic("range of weight is 0.0 to inf")
	}
	if support <= 0 {
		panic("range of support is 1 to inf")
	}
	return &DirichletBase{counts: counts, weight: weight, support: support}
}

// Prob returns p(key).
func (base *DirichletBase) Prob(key string) float64 {
	return (float64(base.counts.TypeCount(key)) + base.weight) / (float64(base.counts.Total()) + base.weight*float64(base.support))
}

// HierarchicalBase chains the marginal counts through a parent base.
// p(key) = (count(key) + weight * parent(key)) / (total + weight)
type HierarchicalBase struct {
	counts marginalCounter
	weight float64
	parent BaseDistribution
}

// NewHierarchicalBase returns HierarchicalBase instance.
func NewHierarchicalBase(counts marginalCounter, weight float64, parent BaseDistribution) *HierarchicalBase {
	if weight <= 0.0 {
		panic("range of weight is 0.0 to inf")
	}
	return &HierarchicalBase{counts: counts, weight: weight, parent: parent}
}

// Prob returns p(key).
func (base *HierarchicalBase) Prob(key string) float64 {
	return (float64(base.counts.TypeCount(key)) + base.weight*base.parent.Prob(key)) / (float64(base.counts.Total()) + base.weight)
}

// CharBase generates a string one character at a time, stopping with probability stop before each character.
// p(key) = stop * ((1 - stop) / alphabet)^len(key), which sums to 1 over all strings.
type CharBase struct {
	stop     float64
	alphabet int
	logStop  float64
	logChar  float64
}

// NewCharBase returns CharBase instance.
func NewCharBase(stop float64, alphabet int) *CharBase {
	if stop <= 0.0 || stop >= 1.0 {
		errMsg := fmt.Sprintf("range of stop is 0.0 to 1.0 (exclusive), got %v", stop)
		panic(errMsg)
	}
	if alphabet <= 0 {
		panic("range of alphabet is 1 to inf")
	}
	return &CharBase{
		stop:     stop,
		alphabet: alphabet,
		logStop:  math.Log(stop),
		logChar:  math.Log((1.0 - stop) / float64(alphabet)),
	}
}

// Prob returns p(key).
func (base *CharBase) Prob(key string) float64 {
	return math.Exp(base.logStop + float64(utf8.RuneCountInString(key))*base.logChar)
}
