package alphabet

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const spaceLabel = " "

var (
	ErrEmptyAlphabet = errors.New("alphabet has no labels")
	ErrInvalidBlank  = errors.New("blank id is outside of alphabet")
	ErrInvalidUTF8   = errors.New("labels are not valid utf-8")
)

// Alphabet maps label indices to symbols. One index is reserved for the CTC blank.
type Alphabet struct {
	labels  []string
	index   map[string]int
	blankID int
	spaceID int
}

func New(labels []string, blankID int) (*Alphabet, error) {
	if len(labels) == 0 {
		return nil, ErrEmptyAlphabet
	}
	if blankID < 0 || blankID >= len(labels) {
		return nil, fmt.Errorf("%w: blank id %d, %d labels", ErrInvalidBlank, blankID, len(labels))
	}
	a := Alphabet{
		labels:  make([]string, len(labels)),
		index:   make(map[string]int, len(labels)),
		blankID: blankID,
		spaceID: -1,
	}
	copy(a.labels, labels)
	for i, l := range a.labels {
		if _, ok := a.index[l]; !ok {
			a.index[l] = i
		}
		if l == spaceLabel && i != blankID && a.spaceID < 0 {
			a.spaceID = i
		}
	}
	return &a, nil
}

// FromString splits labels into utf-8 characters, one label per character.
func FromString(labels string, blankID int) (*Alphabet, error) {
	if !utf8.ValidString(labels) {
		return nil, ErrInvalidUTF8
	}
	split := make([]string, 0, utf8.RuneCountInString(labels))
	for _, r := range labels {
		if r == 0 {
			continue
		}
		split = append(split, string(r))
	}
	return New(split, blankID)
}

func (a *Alphabet) Size() int {
	return len(a.labels)
}

func (a *Alphabet) Blank() int {
	return a.blankID
}

func (a *Alphabet) IsBlank(id int) bool {
	return id == a.blankID
}

// Space returns the index of the word separator label, if the alphabet has one.
func (a *Alphabet) Space() (int, bool) {
	return a.spaceID, a.spaceID >= 0
}

func (a *Alphabet) Label(id int) string {
	if id < 0 || id >= len(a.labels) {
		return ""
	}
	return a.labels[id]
}

// Index returns the first index of the label.
func (a *Alphabet) Index(label string) (int, bool) {
	i, ok := a.index[label]
	return i, ok
}

func (a *Alphabet) Labels() []string {
	labels := make([]string, len(a.labels))
	copy(labels, a.labels)
	return labels
}

// Text renders label ids. Blanks and out of range ids (padding) are skipped.
func (a *Alphabet) Text(ids []int) string {
	var sb strings.Builder
	for _, id := range ids {
		if id == a.blankID || id < 0 || id >= len(a.labels) {
			continue
		}
		sb.WriteString(a.labels[id])
	}
	return sb.String()
}
