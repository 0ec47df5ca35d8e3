package beam

import (
	"text2phenotype.com/ctcdecode/scorer"
	"text2phenotype.com/ctcdecode/utils"
)

// NoLabel marks a state that has not emitted anything yet.
const NoLabel = -1

// State is one collapsed output prefix with the probability mass of all raw
// paths that end in it, split by whether the last frame was blank.
// Prefix and Timesteps are shared between states and must not be modified.
type State struct {
	Prefix          []int
	Timesteps       []int
	LastLabel       int
	LogProbBlank    float64
	LogProbNonBlank float64
	LMScore         float64
	WordCount       int

	hash uint64
	// largest single contribution merged into the state, picks Timesteps
	best float64
}

// NewRoot returns the empty prefix with probability 1.
func NewRoot() *State {
	return &State{
		LastLabel:       NoLabel,
		LogProbBlank:    0,
		LogProbNonBlank: LogZero,
		hash:            utils.HashInts(nil),
		best:            LogZero,
	}
}

func (s *State) Len() int {
	return len(s.Prefix)
}

// LogTotal is log(prob_blank + prob_non_blank).
func (s *State) LogTotal() float64 {
	return LogAdd(s.LogProbBlank, s.LogProbNonBlank)
}

// Score is the ranking key: acoustic mass plus weighted language model score and word bonus.
func (s *State) Score(params scorer.Params) float64 {
	return s.LogTotal() + params.Alpha*s.LMScore + params.Beta*float64(s.WordCount)
}

// samePrefix reports whether the state prefix equals parent extended by tail.
func (s *State) samePrefix(parent []int, tail ...int) bool {
	if len(s.Prefix) != len(parent)+len(tail) {
		return false
	}
	for i, v := range parent {
		if s.Prefix[i] != v {
			return false
		}
	}
	for i, v := range tail {
		if s.Prefix[len(parent)+i] != v {
			return false
		}
	}
	return true
}

func comparePrefixes(a, b []int) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func appendCopy(s []int, v int) []int {
	out := make([]int, len(s)+1)
	copy(out, s)
	out[len(s)] = v
	return out
}
