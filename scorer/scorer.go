package scorer

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrScorerUnavailable = errors.New("language model scorer is unavailable")
	ErrNoScorer          = errors.New("no language model scorer configured")
)

// LanguageModel is implemented by the external n-gram collaborator.
// ScoreIncrement must be safe for concurrent use.
type LanguageModel interface {
	// ScoreIncrement returns the log-score delta for extending prefix by label
	// and whether the extension completed a word.
	ScoreIncrement(prefix []int, label int) (float64, bool, error)
	IsCharacterBased() bool
	MaxOrder() int
	VocabularySize() int
}

// EndScorer is optionally implemented by a LanguageModel that scores the
// unfinished unit left at the end of a prefix.
type EndScorer interface {
	ScoreEnd(prefix []int) (float64, bool, error)
}

type Params struct {
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
}

type Increment struct {
	Delta        float64
	WordBoundary bool
}

type Info struct {
	CharacterBased bool    `json:"character_based"`
	MaxOrder       int     `json:"max_order"`
	VocabularySize int     `json:"dict_size"`
	Alpha          float64 `json:"alpha"`
	Beta           float64 `json:"beta"`
}

// Scorer is consulted by the decoder. Params returns a snapshot that stays
// fixed for the duration of one decode call.
type Scorer interface {
	Params() Params
	ResetParams(alpha, beta float64) error
	Increment(prefix []int, label int) (Increment, error)
	End(prefix []int) (Increment, error)
	Info() *Info
}

// NoScorer is used for pure acoustic decoding.
type NoScorer struct{}

func (NoScorer) Params() Params {
	return Params{}
}

func (NoScorer) ResetParams(alpha, beta float64) error {
	return ErrNoScorer
}

func (NoScorer) Increment(prefix []int, label int) (Increment, error) {
	return Increment{}, nil
}

func (NoScorer) End(prefix []int) (Increment, error) {
	return Increment{}, nil
}

func (NoScorer) Info() *Info {
	return nil
}

// External delegates scoring to a LanguageModel and owns the tunable weights.
type External struct {
	model  LanguageModel
	end    EndScorer
	mu     sync.RWMutex
	params Params
}

func NewExternal(model LanguageModel, alpha, beta float64) *External {
	s := External{
		model:  model,
		params: Params{Alpha: alpha, Beta: beta},
	}
	if end, ok := model.(EndScorer); ok {
		s.end = end
	}
	return &s
}

func (s *External) Params() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

func (s *External) Alpha() float64 {
	return s.Params().Alpha
}

func (s *External) Beta() float64 {
	return s.Params().Beta
}

func (s *External) ResetParams(alpha, beta float64) error {
	s.mu.Lock()
	s.params = Params{Alpha: alpha, Beta: beta}
	s.mu.Unlock()
	return nil
}

func (s *External) Increment(prefix []int, label int) (Increment, error) {
	delta, word, err := s.model.ScoreIncrement(prefix, label)
	if err != nil {
		return Increment{}, fmt.Errorf("%w: %s", ErrScorerUnavailable, err)
	}
	return Increment{Delta: delta, WordBoundary: word}, nil
}

func (s *External) End(prefix []int) (Increment, error) {
	if s.end == nil {
		return Increment{}, nil
	}
	delta, word, err := s.end.ScoreEnd(prefix)
	if err != nil {
		return Increment{}, fmt.Errorf("%w: %s", ErrScorerUnavailable, err)
	}
	return Increment{Delta: delta, WordBoundary: word}, nil
}

func (s *External) Info() *Info {
	params := s.Params()
	return &Info{
		CharacterBased: s.model.IsCharacterBased(),
		MaxOrder:       s.model.MaxOrder(),
		VocabularySize: s.model.VocabularySize(),
		Alpha:          params.Alpha,
		Beta:           params.Beta,
	}
}
