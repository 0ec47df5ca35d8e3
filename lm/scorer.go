package lm

import (
	"errors"
	"sync/atomic"
	"text2phenotype.com/ctcdecode/alphabet"
	"unicode/utf8"
)

var (
	ErrClosed  = errors.New("language model scorer is closed")
	ErrNoSpace = errors.New("word based language model requires a space label in the alphabet")
)

// Scorer adapts a Model to decoder label ids.
// A character based scorer treats every label as a word; a word based one
// scores a word when the space label closes it.
type Scorer struct {
	model          *Model
	alphabet       *alphabet.Alphabet
	characterBased bool
	spaceID        int
	closed         atomic.Bool
}

func NewScorer(model *Model, a *alphabet.Alphabet) (*Scorer, error) {
	s := Scorer{
		model:          model,
		alphabet:       a,
		characterBased: isCharacterVocabulary(model),
		spaceID:        -1,
	}
	if !s.characterBased {
		space, ok := a.Space()
		if !ok {
			return nil, ErrNoSpace
		}
		s.spaceID = space
	}
	return &s, nil
}

func isCharacterVocabulary(model *Model) bool {
	for word := range model.vocab {
		switch word {
		case SentenceStart, SentenceEnd, Unknown:
			continue
		}
		if utf8.RuneCountInString(word) > 1 {
			return false
		}
	}
	return true
}

func (s *Scorer) IsCharacterBased() bool {
	return s.characterBased
}

func (s *Scorer) MaxOrder() int {
	return s.model.Order()
}

func (s *Scorer) VocabularySize() int {
	return s.model.VocabularySize()
}

// Close makes every following score request fail.
func (s *Scorer) Close() {
	s.closed.Store(true)
}

func (s *Scorer) ScoreIncrement(prefix []int, label int) (float64, bool, error) {
	if s.closed.Load() {
		return 0, false, ErrClosed
	}
	if s.alphabet.IsBlank(label) {
		return 0, false, nil
	}
	if s.characterBased {
		history := s.characterHistory(prefix)
		return s.model.LogProb(history, s.alphabet.Label(label)), true, nil
	}
	if label != s.spaceID {
		return 0, false, nil
	}
	words, last := s.splitWords(prefix)
	if last == "" {
		return 0, false, nil
	}
	return s.model.LogProb(s.wordHistory(words), last), true, nil
}

// ScoreEnd scores the word left unfinished at the end of the prefix.
func (s *Scorer) ScoreEnd(prefix []int) (float64, bool, error) {
	if s.closed.Load() {
		return 0, false, ErrClosed
	}
	if s.characterBased {
		return 0, false, nil
	}
	words, last := s.splitWords(prefix)
	if last == "" {
		return 0, false, nil
	}
	return s.model.LogProb(s.wordHistory(words), last), true, nil
}

func (s *Scorer) characterHistory(prefix []int) []string {
	size := s.model.Order() - 1
	if len(prefix) > size {
		prefix = prefix[len(prefix)-size:]
	}
	history := make([]string, 0, size)
	if len(prefix) < size {
		history = append(history, SentenceStart)
	}
	for _, id := range prefix {
		history = append(history, s.alphabet.Label(id))
	}
	return history
}

func (s *Scorer) wordHistory(words []string) []string {
	size := s.model.Order() - 1
	if len(words) > size {
		words = words[len(words)-size:]
	}
	history := make([]string, 0, size)
	if len(words) < size {
		history = append(history, SentenceStart)
	}
	return append(history, words...)
}

// splitWords returns the completed words of the prefix and the trailing, not yet closed word.
func (s *Scorer) splitWords(prefix []int) ([]string, string) {
	var words []string
	start := 0
	for i, id := range prefix {
		if id != s.spaceID {
			continue
		}
		if i > start {
			words = append(words, s.alphabet.Text(prefix[start:i]))
		}
		start = i + 1
	}
	return words, s.alphabet.Text(prefix[start:])
}
