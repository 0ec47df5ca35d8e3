package decoder

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid decoder configuration")

type Config struct {
	BeamWidth     int     `yaml:"beam_width" json:"beam_width"`
	NumWorkers    int     `yaml:"num_workers" json:"num_workers"`
	CutoffTopN    int     `yaml:"cutoff_top_n" json:"cutoff_top_n"`
	CutoffProb    float64 `yaml:"cutoff_prob" json:"cutoff_prob"`
	LogProbsInput bool    `yaml:"log_probs_input" json:"log_probs_input"`
}

func DefaultConfig() Config {
	return Config{
		BeamWidth:  100,
		NumWorkers: 4,
		CutoffTopN: 40,
		CutoffProb: 1.0,
	}
}

func (cfg Config) Validate() error {
	switch {
	case cfg.BeamWidth <= 0:
		return fmt.Errorf("%w: beam_width must be positive, got %d", ErrInvalidConfig, cfg.BeamWidth)
	case cfg.CutoffTopN <= 0:
		return fmt.Errorf("%w: cutoff_top_n must be positive, got %d", ErrInvalidConfig, cfg.CutoffTopN)
	case !(cfg.CutoffProb > 0 && cfg.CutoffProb <= 1):
		return fmt.Errorf("%w: cutoff_prob must be in (0, 1], got %v", ErrInvalidConfig, cfg.CutoffProb)
	case cfg.NumWorkers < 0:
		return fmt.Errorf("%w: num_workers must not be negative, got %d", ErrInvalidConfig, cfg.NumWorkers)
	}
	return nil
}
