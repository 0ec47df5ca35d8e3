package lm

import (
	"sort"
	"text2phenotype.com/ctcdecode/utils"
)

const (
	SentenceStart = "<s>"
	SentenceEnd   = "</s>"
	Unknown       = "<unk>"

	// OOVLogProb is used for words missing from the vocabulary when the model has no <unk> entry.
	OOVLogProb = -1000.0
)

type ngramEntry struct {
	LogProb    float64
	LogBackoff float64
}

// Model is a backoff n-gram language model of arbitrary order.
// N-grams are keyed by the murmur3 hash of their tokens.
// Log probabilities are natural logs.
type Model struct {
	order int
	grams []map[uint64]ngramEntry
	vocab map[string]struct{}
}

func NewModel(order int) *Model {
	if order < 1 {
		order = 1
	}
	m := Model{
		order: order,
		grams: make([]map[uint64]ngramEntry, order),
		vocab: make(map[string]struct{}),
	}
	for i := range m.grams {
		m.grams[i] = make(map[uint64]ngramEntry)
	}
	return &m
}

func (m *Model) Order() int {
	return m.order
}

// Add stores an n-gram. Its order is len(words); orders above the model order are ignored.
func (m *Model) Add(words []string, logProb, logBackoff float64) {
	n := len(words)
	if n == 0 || n > m.order {
		return
	}
	if n == 1 {
		m.vocab[words[0]] = struct{}{}
	}
	m.grams[n-1][utils.HashStrings(words)] = ngramEntry{LogProb: logProb, LogBackoff: logBackoff}
}

func (m *Model) Contains(word string) bool {
	_, ok := m.vocab[word]
	return ok
}

// VocabularySize excludes the sentence markers.
func (m *Model) VocabularySize() int {
	size := len(m.vocab)
	for _, marker := range []string{SentenceStart, SentenceEnd} {
		if m.Contains(marker) {
			size--
		}
	}
	return size
}

func (m *Model) Vocabulary() []string {
	words := make([]string, 0, len(m.vocab))
	for w := range m.vocab {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// LogProb returns log P(word | history), backing off to shorter histories.
func (m *Model) LogProb(history []string, word string) float64 {
	if !m.Contains(word) {
		if m.Contains(Unknown) {
			word = Unknown
		} else {
			return OOVLogProb
		}
	}
	context := history
	if len(context) > m.order-1 {
		context = context[len(context)-(m.order-1):]
	}

	backoff := 0.0
	gram := make([]string, 0, len(context)+1)
	for {
		gram = append(append(gram[:0], context...), word)
		if e, ok := m.grams[len(gram)-1][utils.HashStrings(gram)]; ok {
			return backoff + e.LogProb
		}
		if len(context) == 0 {
			// word is in the vocabulary, so the unigram is always found above
			return backoff + OOVLogProb
		}
		if e, ok := m.grams[len(context)-1][utils.HashStrings(context)]; ok {
			backoff += e.LogBackoff
		}
		context = context[1:]
	}
}

// SentenceLogProb scores a whole word sequence between <s> and </s>.
func (m *Model) SentenceLogProb(words []string) float64 {
	total := 0.0
	history := []string{SentenceStart}
	for _, w := range words {
		total += m.LogProb(history, w)
		history = append(history, w)
	}
	return total + m.LogProb(history, SentenceEnd)
}
