package types

// Hypothesis is one ranked decoding of a sequence rendered through the alphabet.
type Hypothesis struct {
	Text      string  `json:"text"`
	Labels    []int   `json:"labels"`
	Timesteps []int   `json:"timesteps"`
	Score     float64 `json:"score"`
	Length    int     `json:"length"`
}

// SequenceResult holds the hypotheses of one batch item. Padding slots are not
// included, Error is set when the sequence could not be decoded.
type SequenceResult struct {
	Hypotheses []Hypothesis `json:"hypotheses"`
	Error      string       `json:"error,omitempty"`
}

type DecodeResponse struct {
	Tid       string           `json:"tid"`
	Config    string           `json:"config"`
	BeamWidth int              `json:"beam_width"`
	Sequences []SequenceResult `json:"sequences"`
}
