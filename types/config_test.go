package types

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"text2phenotype.com/ctcdecode/decoder"
	"text2phenotype.com/ctcdecode/scorer"
)

func writeFile(t *testing.T, dir string, name string, content string) {
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestParseConfiguration(t *testing.T) {
	t.Run("Defaults are kept", func(t *testing.T) {
		cfg, err := ParseConfiguration("english", []byte("labels: \"_abc \"\n"))
		require.NoError(t, err)
		assert.Equal(t, "english", cfg.Name)
		assert.Equal(t, decoder.DefaultConfig(), cfg.Config)
		assert.Equal(t, scorer.Params{}, cfg.Params)
		assert.Equal(t, 0, cfg.BlankID)
		assert.False(t, cfg.HasLanguageModel())
	})
	t.Run("All fields", func(t *testing.T) {
		buf := []byte(`
name: words
labels: "ab _"
blank_id: 3
beam_width: 8
num_workers: 2
cutoff_top_n: 3
cutoff_prob: 0.99
log_probs_input: true
alpha: 0.75
beta: 1.85
lm_path: /models/words.arpa
`)
		cfg, err := ParseConfiguration("file-name", buf)
		require.NoError(t, err)
		expected := Configuration{
			Name:          "words",
			Labels:        "ab _",
			BlankID:       3,
			LanguageModel: "/models/words.arpa",
			Config: decoder.Config{
				BeamWidth:     8,
				NumWorkers:    2,
				CutoffTopN:    3,
				CutoffProb:    0.99,
				LogProbsInput: true,
			},
			Params: scorer.Params{Alpha: 0.75, Beta: 1.85},
		}
		assert.Equal(t, expected, cfg)
		a, err := cfg.Alphabet()
		require.NoError(t, err)
		assert.Equal(t, 4, a.Size())
		assert.True(t, a.IsBlank(3))
	})
	t.Run("Invalid values", func(t *testing.T) {
		tests := map[string]string{
			"Zero beam":        "labels: \"_a\"\nbeam_width: 0\n",
			"Blank outside":    "labels: \"_a\"\nblank_id: 2\n",
			"Empty labels":     "labels: \"\"\n",
			"Cutoff prob zero": "labels: \"_a\"\ncutoff_prob: 0\n",
		}
		for name, buf := range tests {
			_, err := ParseConfiguration("bad", []byte(buf))
			assert.True(t, errors.Is(err, decoder.ErrInvalidConfig), name)
		}
	})
	t.Run("Malformed yaml", func(t *testing.T) {
		_, err := ParseConfiguration("bad", []byte("labels: [\n"))
		assert.Error(t, err)
	})
}

func TestLoadConfigurations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "greedy.yaml", "labels: \"_ab\"\ncutoff_top_n: 1\n")
	writeFile(t, dir, "beam.yaml", "labels: \"_ab\"\nbeam_width: 4\n")
	writeFile(t, dir, "broken.yaml", "labels: \"_ab\"\nbeam_width: -1\n")
	writeFile(t, dir, "notes.txt", "not a configuration")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o700))

	configs, err := LoadConfigurations(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, decoder.ErrInvalidConfig))
	assert.Contains(t, err.Error(), "broken.yaml")

	require.Len(t, configs, 2)
	assert.Equal(t, "beam", configs[0].Name)
	assert.Equal(t, 4, configs[0].BeamWidth)
	assert.Equal(t, filepath.Join(dir, "beam.yaml"), configs[0].FilePath)
	assert.Equal(t, "greedy", configs[1].Name)
	assert.Equal(t, 1, configs[1].CutoffTopN)
}

func TestLoadConfigurationsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "name: shared\nlabels: \"_ab\"\n")
	writeFile(t, dir, "b.yaml", "name: shared\nlabels: \"_ab\"\n")

	configs, err := LoadConfigurations(dir)
	assert.True(t, errors.Is(err, ErrDuplicateConfig))
	require.Len(t, configs, 1)
	assert.Equal(t, filepath.Join(dir, "a.yaml"), configs[0].FilePath)
}

func TestLoadConfigurationsMissingDir(t *testing.T) {
	_, err := LoadConfigurations(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
