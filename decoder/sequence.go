package decoder

import (
	"errors"
	"fmt"
	"math"
	"text2phenotype.com/ctcdecode/alphabet"
	"text2phenotype.com/ctcdecode/beam"
	"text2phenotype.com/ctcdecode/scorer"
)

var (
	ErrEmptySequence      = errors.New("sequence has no timesteps")
	ErrZeroProbability    = errors.New("timestep has no probability mass")
	ErrInvalidProbability = errors.New("timestep has a NaN or negative probability")
	ErrShapeMismatch      = errors.New("emission width does not match alphabet size")
	ErrFinalized          = errors.New("sequence decoder is finalized")
)

type decoderState int

const (
	stateInitialized decoderState = iota
	stateRunning
	stateFinalized
)

// SequenceDecoder runs the beam search over one sequence, one timestep per Step.
// It is not safe for concurrent use.
type SequenceDecoder struct {
	alphabet *alphabet.Alphabet
	scorer   scorer.Scorer
	params   scorer.Params
	config   Config
	frontier *beam.Frontier
	timestep int
	state    decoderState
	logRow   []float64
	probRow  []float64
}

// NewSequenceDecoder expects a validated config. params is the alpha/beta
// snapshot used for ranking during the whole decode.
func NewSequenceDecoder(a *alphabet.Alphabet, sc scorer.Scorer, params scorer.Params, cfg Config) *SequenceDecoder {
	if sc == nil {
		sc = scorer.NoScorer{}
	}
	return &SequenceDecoder{
		alphabet: a,
		scorer:   sc,
		params:   params,
		config:   cfg,
		frontier: beam.NewInitialFrontier(),
		state:    stateInitialized,
		logRow:   make([]float64, a.Size()),
		probRow:  make([]float64, a.Size()),
	}
}

// Timestep is the number of steps consumed so far.
func (d *SequenceDecoder) Timestep() int {
	return d.timestep
}

func (d *SequenceDecoder) Frontier() *beam.Frontier {
	return d.frontier
}

// Step consumes the emission row of the next timestep.
func (d *SequenceDecoder) Step(row []float64) error {
	if d.state == stateFinalized {
		return ErrFinalized
	}
	if len(row) != d.alphabet.Size() {
		return fmt.Errorf("%w: got %d, alphabet has %d labels", ErrShapeMismatch, len(row), d.alphabet.Size())
	}
	if err := d.normalizeRow(row); err != nil {
		return fmt.Errorf("timestep %d: %w", d.timestep, err)
	}
	d.state = stateRunning

	candidates := beam.SelectCandidates(d.probRow, d.config.CutoffTopN, d.config.CutoffProb)
	next, err := d.frontier.Extend(d.timestep, d.logRow, candidates, d.alphabet.Blank(), d.scorer)
	if err != nil {
		return err
	}
	d.frontier = next.Prune(d.config.BeamWidth, d.params)
	d.timestep++
	return nil
}

func (d *SequenceDecoder) normalizeRow(row []float64) error {
	mass := 0.0
	for i, v := range row {
		if math.IsNaN(v) || !d.config.LogProbsInput && v < 0 {
			return ErrInvalidProbability
		}
		if d.config.LogProbsInput {
			d.logRow[i] = v
			d.probRow[i] = math.Exp(v)
		} else {
			d.logRow[i] = math.Log(v)
			d.probRow[i] = v
		}
		if d.probRow[i] > 0 {
			mass += d.probRow[i]
		}
	}
	if mass == 0 {
		return ErrZeroProbability
	}
	return nil
}

// Finalize ranks the last frontier and returns beam width hypotheses.
// The scorer gets a last chance to score the unfinished word of every prefix.
func (d *SequenceDecoder) Finalize() (Output, error) {
	if d.state == stateFinalized {
		return Output{}, ErrFinalized
	}
	initialized := d.state == stateInitialized
	d.state = stateFinalized
	if initialized {
		return emptyOutput(d.config.BeamWidth, ErrEmptySequence), ErrEmptySequence
	}

	states := d.frontier.States()
	final := make([]*beam.State, len(states))
	for i, s := range states {
		inc, err := d.scorer.End(s.Prefix)
		if err != nil {
			return Output{}, err
		}
		finished := *s
		finished.LMScore += inc.Delta
		if inc.WordBoundary {
			finished.WordCount++
		}
		final[i] = &finished
	}
	ranked := beam.Rank(final, d.params)

	out := emptyOutput(d.config.BeamWidth, nil)
	for i, s := range ranked {
		if i == d.config.BeamWidth {
			break
		}
		labels := make([]int, len(s.Prefix))
		copy(labels, s.Prefix)
		timesteps := make([]int, len(s.Timesteps))
		copy(timesteps, s.Timesteps)
		out.Hypotheses[i] = Hypothesis{
			Labels:    labels,
			Timesteps: timesteps,
			Score:     s.Score(d.params),
			Length:    len(labels),
		}
	}
	d.frontier = nil
	return out, nil
}

// Decode steps through the first seqLen rows and finalizes.
func (d *SequenceDecoder) Decode(rows [][]float64, seqLen int) (Output, error) {
	if seqLen > len(rows) {
		seqLen = len(rows)
	}
	for t := 0; t < seqLen; t++ {
		if err := d.Step(rows[t]); err != nil {
			d.state = stateFinalized
			d.frontier = nil
			if isSequenceFailure(err) {
				return emptyOutput(d.config.BeamWidth, err), err
			}
			return Output{}, err
		}
	}
	return d.Finalize()
}

// isSequenceFailure tells errors that only spoil the current sequence from
// errors that must fail the whole call.
func isSequenceFailure(err error) bool {
	return errors.Is(err, ErrEmptySequence) ||
		errors.Is(err, ErrZeroProbability) ||
		errors.Is(err, ErrInvalidProbability)
}
