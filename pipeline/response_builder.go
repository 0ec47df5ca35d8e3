package pipeline

import (
	"math"
	"text2phenotype.com/ctcdecode/alphabet"
	"text2phenotype.com/ctcdecode/decoder"
	"text2phenotype.com/ctcdecode/types"
)

func buildResponse(tid string, configName string, a *alphabet.Alphabet, beamWidth int, result *decoder.BatchResult) *types.DecodeResponse {
	response := types.DecodeResponse{
		Tid:       tid,
		Config:    configName,
		BeamWidth: beamWidth,
		Sequences: make([]types.SequenceResult, len(result.Outputs)),
	}
	for i, out := range result.Outputs {
		sequence := types.SequenceResult{Hypotheses: []types.Hypothesis{}}
		if out.Err != nil {
			sequence.Error = out.Err.Error()
		}
		for _, h := range out.Hypotheses {
			// padding slots carry -Inf which JSON cannot represent
			if math.IsInf(h.Score, -1) {
				continue
			}
			sequence.Hypotheses = append(sequence.Hypotheses, types.Hypothesis{
				Text:      a.Text(h.Labels),
				Labels:    h.Labels,
				Timesteps: h.Timesteps,
				Score:     h.Score,
				Length:    h.Length,
			})
		}
		response.Sequences[i] = sequence
	}
	return &response
}
