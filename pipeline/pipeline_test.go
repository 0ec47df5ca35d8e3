package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math"
	"os"
	"path/filepath"
	"testing"
	"text2phenotype.com/ctcdecode/decoder"
	"text2phenotype.com/ctcdecode/scorer"
	"text2phenotype.com/ctcdecode/types"
)

const wordsARPA = `\data\
ngram 1=5
ngram 2=2

\1-grams:
-1.0	</s>
-99	<s>	-0.5
-0.5	ab	-0.2
-0.7	ba	-0.3
-2.0	<unk>

\2-grams:
-0.3	<s>	ab
-0.4	ab	ba

\end\
`

// argmax labels a a _ b
const scenarioPayload = `{"probs": [[[0.2, 0.6, 0.2], [0.2, 0.7, 0.1], [0.8, 0.1, 0.1], [0.3, 0.2, 0.5]]], "seq_lens": [4]}`

func greedyConfiguration() types.Configuration {
	cfg := types.DefaultConfiguration("greedy")
	cfg.Labels = "_ab"
	cfg.BeamWidth = 1
	cfg.CutoffTopN = 1
	cfg.NumWorkers = 1
	return cfg
}

func wordsConfiguration(t *testing.T) types.Configuration {
	lmPath := filepath.Join(t.TempDir(), "words.arpa")
	require.NoError(t, os.WriteFile(lmPath, []byte(wordsARPA), 0o600))
	cfg := types.DefaultConfiguration("words")
	cfg.Labels = "_ab "
	cfg.BeamWidth = 4
	cfg.LanguageModel = lmPath
	cfg.Params = scorer.Params{Alpha: 0.5, Beta: 1}
	return cfg
}

func newTestRegistry(t *testing.T, cfgs ...types.Configuration) *Registry {
	registry, err := NewRegistry(cfgs)
	require.NoError(t, err)
	t.Cleanup(registry.Close)
	return registry
}

func TestCTCDecode(t *testing.T) {
	registry := newTestRegistry(t, greedyConfiguration(), wordsConfiguration(t))
	ppln := CTCDecode(registry)

	t.Run("Decodes scenario", func(t *testing.T) {
		raw, ok := <-ppln(Request{Tid: "tid-1", Config: "greedy", Payload: []byte(scenarioPayload)})
		require.True(t, ok)
		var response types.DecodeResponse
		require.NoError(t, json.Unmarshal([]byte(raw), &response))

		expected := types.DecodeResponse{
			Tid:       "tid-1",
			Config:    "greedy",
			BeamWidth: 1,
			Sequences: []types.SequenceResult{{
				Hypotheses: []types.Hypothesis{{
					Text:      "ab",
					Labels:    []int{1, 2},
					Timesteps: []int{0, 3},
					Score:     math.Log(0.6) + math.Log(0.7) + math.Log(0.8) + math.Log(0.5),
					Length:    2,
				}},
			}},
		}
		if diff := cmp.Diff(expected, response, cmp.Comparer(func(x, y float64) bool {
			return math.Abs(x-y) < 1e-9
		})); diff != "" {
			t.Errorf("response mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("Decodes with language model", func(t *testing.T) {
		payload := `{"probs": [[[0.1, 0.7, 0.1, 0.1], [0.1, 0.1, 0.7, 0.1]]]}`
		raw, ok := <-ppln(Request{Tid: "tid-2", Config: "words", Payload: []byte(payload)})
		require.True(t, ok)
		var response types.DecodeResponse
		require.NoError(t, json.Unmarshal([]byte(raw), &response))
		require.Len(t, response.Sequences, 1)
		require.NotEmpty(t, response.Sequences[0].Hypotheses)
		assert.Equal(t, "ab", response.Sequences[0].Hypotheses[0].Text)
		assert.LessOrEqual(t, len(response.Sequences[0].Hypotheses), 4)
	})
	t.Run("Sequence failure is reported in place", func(t *testing.T) {
		payload := `{"probs": [[[0, 0, 0]], [[0.2, 0.6, 0.2]]]}`
		raw, ok := <-ppln(Request{Tid: "tid-3", Config: "greedy", Payload: []byte(payload)})
		require.True(t, ok)
		var response types.DecodeResponse
		require.NoError(t, json.Unmarshal([]byte(raw), &response))
		require.Len(t, response.Sequences, 2)
		assert.NotEmpty(t, response.Sequences[0].Error)
		assert.Empty(t, response.Sequences[0].Hypotheses)
		assert.Empty(t, response.Sequences[1].Error)
		assert.Equal(t, "a", response.Sequences[1].Hypotheses[0].Text)
	})

	failures := map[string]Request{
		"Unknown configuration":   {Tid: "tid-4", Config: "missing", Payload: []byte(scenarioPayload)},
		"Ambiguous configuration": {Tid: "tid-5", Payload: []byte(scenarioPayload)},
		"Malformed payload":       {Tid: "tid-6", Config: "greedy", Payload: []byte(`{"probs": [`)},
		"Wrong label count":       {Tid: "tid-7", Config: "words", Payload: []byte(scenarioPayload)},
	}
	for name, request := range failures {
		request := request
		t.Run(name, func(t *testing.T) {
			_, ok := <-ppln(request)
			assert.False(t, ok)
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Run("Single configuration is the default", func(t *testing.T) {
		registry := newTestRegistry(t, greedyConfiguration())
		d, err := registry.Get("")
		require.NoError(t, err)
		assert.Equal(t, "greedy", d.Name())
	})
	t.Run("Names are sorted", func(t *testing.T) {
		registry := newTestRegistry(t, wordsConfiguration(t), greedyConfiguration())
		assert.Equal(t, []string{"greedy", "words"}, registry.Names())
		_, err := registry.Get("")
		assert.True(t, errors.Is(err, ErrUnknownConfig))
	})
	t.Run("Duplicate names", func(t *testing.T) {
		_, err := NewRegistry([]types.Configuration{greedyConfiguration(), greedyConfiguration()})
		assert.True(t, errors.Is(err, types.ErrDuplicateConfig))
	})
	t.Run("Missing language model", func(t *testing.T) {
		cfg := wordsConfiguration(t)
		cfg.LanguageModel = filepath.Join(t.TempDir(), "missing.arpa")
		_, err := NewRegistry([]types.Configuration{greedyConfiguration(), cfg})
		assert.Error(t, err)
	})
	t.Run("Invalid configuration", func(t *testing.T) {
		cfg := greedyConfiguration()
		cfg.BeamWidth = 0
		_, err := NewRegistry([]types.Configuration{cfg})
		assert.True(t, errors.Is(err, decoder.ErrInvalidConfig))
	})
	t.Run("No configurations", func(t *testing.T) {
		_, err := NewRegistry(nil)
		assert.Error(t, err)
	})
}

func TestDecoderScorer(t *testing.T) {
	registry := newTestRegistry(t, greedyConfiguration(), wordsConfiguration(t))

	greedy, err := registry.Get("greedy")
	require.NoError(t, err)
	_, err = greedy.ScorerInfo()
	assert.True(t, errors.Is(err, scorer.ErrNoScorer))
	_, err = greedy.ResetScorer(scorer.Params{Alpha: 1})
	assert.True(t, errors.Is(err, scorer.ErrNoScorer))

	words, err := registry.Get("words")
	require.NoError(t, err)
	info, err := words.ScorerInfo()
	require.NoError(t, err)
	assert.Equal(t, &scorer.Info{CharacterBased: false, MaxOrder: 2, VocabularySize: 3, Alpha: 0.5, Beta: 1}, info)

	info, err = words.ResetScorer(scorer.Params{Alpha: 2, Beta: 0.25})
	require.NoError(t, err)
	assert.Equal(t, 2.0, info.Alpha)
	assert.Equal(t, 0.25, info.Beta)
}

func TestBuildResponseSkipsPadding(t *testing.T) {
	cfg := greedyConfiguration()
	cfg.BeamWidth = 3
	cfg.CutoffTopN = 3
	d, err := NewDecoder(cfg)
	require.NoError(t, err)

	batch := decoder.Batch{Probs: [][][]float64{{{0.5, 0.5, 0}}}}
	response, err := d.Decode(context.Background(), "tid", batch)
	require.NoError(t, err)
	require.Len(t, response.Sequences, 1)
	// [] and [a] survive, [b] has no mass
	texts := []string{}
	for _, h := range response.Sequences[0].Hypotheses {
		texts = append(texts, h.Text)
		assert.False(t, math.IsInf(h.Score, 0))
	}
	assert.ElementsMatch(t, []string{"", "a"}, texts)
	_, err = json.Marshal(response)
	assert.NoError(t, err)
}
