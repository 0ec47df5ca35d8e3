package decoder

import "math"

// PadLabel fills label and timestep arrays past the end of a hypothesis.
const PadLabel = -1

// Hypothesis is one ranked decoding of a sequence.
type Hypothesis struct {
	Labels    []int   `json:"labels"`
	Timesteps []int   `json:"timesteps"`
	Score     float64 `json:"score"`
	Length    int     `json:"length"`
}

func emptyHypothesis() Hypothesis {
	return Hypothesis{
		Labels:    []int{},
		Timesteps: []int{},
		Score:     math.Inf(-1),
	}
}

// Output holds exactly beam width hypotheses, best first. Slots without a
// hypothesis have a -Inf score and zero length. Err is set when the sequence
// could not be decoded; its hypotheses are then all empty.
type Output struct {
	Hypotheses []Hypothesis `json:"hypotheses"`
	Err        error        `json:"-"`
}

func emptyOutput(width int, err error) Output {
	out := Output{Hypotheses: make([]Hypothesis, width), Err: err}
	for i := range out.Hypotheses {
		out.Hypotheses[i] = emptyHypothesis()
	}
	return out
}

// Best returns the top hypothesis.
func (out Output) Best() (Hypothesis, bool) {
	if len(out.Hypotheses) == 0 || out.Hypotheses[0].Length == 0 && math.IsInf(out.Hypotheses[0].Score, -1) {
		return Hypothesis{}, false
	}
	return out.Hypotheses[0], true
}

// BatchResult holds per item outputs and the same data as fixed shape arrays:
// Labels and Timesteps are [batch][beam][maxTimesteps] padded with PadLabel,
// Scores and Lengths are [batch][beam].
type BatchResult struct {
	Outputs   []Output
	Labels    [][][]int
	Timesteps [][][]int
	Scores    [][]float64
	Lengths   [][]int
}

func newBatchResult(outputs []Output, width, maxTimesteps int) *BatchResult {
	result := BatchResult{
		Outputs:   outputs,
		Labels:    make([][][]int, len(outputs)),
		Timesteps: make([][][]int, len(outputs)),
		Scores:    make([][]float64, len(outputs)),
		Lengths:   make([][]int, len(outputs)),
	}
	for b, out := range outputs {
		result.Labels[b] = make([][]int, width)
		result.Timesteps[b] = make([][]int, width)
		result.Scores[b] = make([]float64, width)
		result.Lengths[b] = make([]int, width)
		for p := 0; p < width; p++ {
			labels := padded(maxTimesteps)
			timesteps := padded(maxTimesteps)
			h := emptyHypothesis()
			if p < len(out.Hypotheses) {
				h = out.Hypotheses[p]
			}
			copy(labels, h.Labels)
			copy(timesteps, h.Timesteps)
			result.Labels[b][p] = labels
			result.Timesteps[b][p] = timesteps
			result.Scores[b][p] = h.Score
			result.Lengths[b][p] = h.Length
		}
	}
	return &result
}

func padded(size int) []int {
	s := make([]int, size)
	for i := range s {
		s[i] = PadLabel
	}
	return s
}
