package beam

import (
	"math"
	"sort"
	"text2phenotype.com/ctcdecode/scorer"
	"text2phenotype.com/ctcdecode/utils"
)

// Frontier holds the active states of one timestep, at most one per prefix.
// States are bucketed by prefix hash; prefixes are compared on collision.
type Frontier struct {
	buckets map[uint64][]*State
	states  []*State
}

func NewFrontier(capacity int) *Frontier {
	return &Frontier{
		buckets: make(map[uint64][]*State, capacity),
		states:  make([]*State, 0, capacity),
	}
}

// NewInitialFrontier holds the single empty prefix with probability 1.
func NewInitialFrontier() *Frontier {
	f := NewFrontier(1)
	f.insert(NewRoot())
	return f
}

func (f *Frontier) Len() int {
	return len(f.states)
}

// States returns the states in insertion order.
func (f *Frontier) States() []*State {
	return f.states
}

// Get looks a prefix up.
func (f *Frontier) Get(prefix []int) (*State, bool) {
	s := f.find(utils.HashInts(prefix), prefix)
	return s, s != nil
}

// LogMass is log of the summed probability of all states.
func (f *Frontier) LogMass() float64 {
	mass := LogZero
	for _, s := range f.states {
		mass = LogAdd(mass, s.LogTotal())
	}
	return mass
}

func (f *Frontier) find(hash uint64, parent []int, tail ...int) *State {
	for _, s := range f.buckets[hash] {
		if s.samePrefix(parent, tail...) {
			return s
		}
	}
	return nil
}

func (f *Frontier) insert(s *State) {
	f.buckets[s.hash] = append(f.buckets[s.hash], s)
	f.states = append(f.states, s)
}

// Extend applies the CTC transition for timestep t to every state and every
// candidate label and returns the merged, unpruned next frontier.
// logProbs holds the log emission probabilities of the timestep.
// The scorer is asked once for every prefix that first appears in the result.
func (f *Frontier) Extend(t int, logProbs []float64, candidates []int, blank int, sc scorer.Scorer) (*Frontier, error) {
	next := NewFrontier(len(f.states) * len(candidates))
	for _, s := range f.states {
		total := s.LogTotal()
		for _, k := range candidates {
			p := logProbs[k]
			if math.IsInf(p, -1) {
				continue
			}
			switch {
			case k == blank:
				next.addUnchanged(s, true, p+total)
			case k == s.LastLabel:
				next.addUnchanged(s, false, p+s.LogProbNonBlank)
				if err := next.addExtended(s, k, t, p+s.LogProbBlank, sc); err != nil {
					return nil, err
				}
			default:
				if err := next.addExtended(s, k, t, p+total, sc); err != nil {
					return nil, err
				}
			}
		}
	}
	return next, nil
}

func (f *Frontier) addUnchanged(from *State, blank bool, logProb float64) {
	if math.IsInf(logProb, -1) {
		return
	}
	target := f.find(from.hash, from.Prefix)
	if target == nil {
		target = &State{
			Prefix:          from.Prefix,
			Timesteps:       from.Timesteps,
			LastLabel:       from.LastLabel,
			LogProbBlank:    LogZero,
			LogProbNonBlank: LogZero,
			LMScore:         from.LMScore,
			WordCount:       from.WordCount,
			hash:            from.hash,
			best:            LogZero,
		}
		f.insert(target)
	}
	if blank {
		target.LogProbBlank = LogAdd(target.LogProbBlank, logProb)
	} else {
		target.LogProbNonBlank = LogAdd(target.LogProbNonBlank, logProb)
	}
	if logProb > target.best {
		target.best = logProb
		target.Timesteps = from.Timesteps
	}
}

func (f *Frontier) addExtended(from *State, label, t int, logProb float64, sc scorer.Scorer) error {
	if math.IsInf(logProb, -1) {
		return nil
	}
	hash := utils.HashInts(from.Prefix, label)
	target := f.find(hash, from.Prefix, label)
	if target == nil {
		inc, err := sc.Increment(from.Prefix, label)
		if err != nil {
			return err
		}
		target = &State{
			Prefix:          appendCopy(from.Prefix, label),
			LastLabel:       label,
			LogProbBlank:    LogZero,
			LogProbNonBlank: LogZero,
			LMScore:         from.LMScore + inc.Delta,
			WordCount:       from.WordCount,
			hash:            hash,
			best:            LogZero,
		}
		if inc.WordBoundary {
			target.WordCount++
		}
		f.insert(target)
	}
	target.LogProbNonBlank = LogAdd(target.LogProbNonBlank, logProb)
	if logProb > target.best {
		target.best = logProb
		target.Timesteps = appendCopy(from.Timesteps, t)
	}
	return nil
}

// Ranked returns the states sorted by descending score. Equal scores put the
// shorter prefix first, then the lexicographically lower one.
func (f *Frontier) Ranked(params scorer.Params) []*State {
	return Rank(f.states, params)
}

// Rank sorts a copy of states the same way Ranked does.
func Rank(states []*State, params scorer.Params) []*State {
	scores := make(map[*State]float64, len(states))
	for _, s := range states {
		scores[s] = s.Score(params)
	}
	ranked := make([]*State, len(states))
	copy(ranked, states)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return comparePrefixes(a.Prefix, b.Prefix) < 0
	})
	return ranked
}

// Prune keeps the best width states.
func (f *Frontier) Prune(width int, params scorer.Params) *Frontier {
	if len(f.states) <= width {
		return f
	}
	ranked := f.Ranked(params)[:width]
	pruned := NewFrontier(width)
	for _, s := range ranked {
		pruned.insert(s)
	}
	return pruned
}
