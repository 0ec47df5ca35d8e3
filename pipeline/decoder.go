package pipeline

import (
	"context"
	"fmt"
	"github.com/rs/zerolog"
	"text2phenotype.com/ctcdecode/decoder"
	"text2phenotype.com/ctcdecode/lm"
	"text2phenotype.com/ctcdecode/logger"
	"text2phenotype.com/ctcdecode/scorer"
	"text2phenotype.com/ctcdecode/types"
)

// Decoder is a batch decoder built from one configuration, together with the
// language model it owns.
type Decoder struct {
	cfg       types.Configuration
	batch     *decoder.BatchDecoder
	lmScorer  *lm.Scorer
	ctcLogger *zerolog.Logger
}

func NewDecoder(cfg types.Configuration) (*Decoder, error) {
	ctcLogger := logger.NewLogger("Decoder").With().Str("config_name", cfg.Name).Logger()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a, err := cfg.Alphabet()
	if err != nil {
		return nil, err
	}

	d := &Decoder{cfg: cfg, ctcLogger: &ctcLogger}
	var sc scorer.Scorer = scorer.NoScorer{}
	if cfg.HasLanguageModel() {
		model, err := lm.Load(cfg.LanguageModel)
		if err != nil {
			ctcLogger.Err(err).Str("lm_path", cfg.LanguageModel).Msg("Failed to load language model")
			return nil, fmt.Errorf("configuration %s: %w", cfg.Name, err)
		}
		d.lmScorer, err = lm.NewScorer(model, a)
		if err != nil {
			return nil, fmt.Errorf("configuration %s: %w", cfg.Name, err)
		}
		sc = scorer.NewExternal(d.lmScorer, cfg.Alpha, cfg.Beta)
		ctcLogger.Info().
			Str("lm_path", cfg.LanguageModel).
			Int("max_order", d.lmScorer.MaxOrder()).
			Int("dict_size", d.lmScorer.VocabularySize()).
			Bool("character_based", d.lmScorer.IsCharacterBased()).
			Msg("Loaded language model")
	}

	d.batch, err = decoder.New(a, sc, cfg.Config)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Decoder) Name() string {
	return d.cfg.Name
}

func (d *Decoder) Configuration() types.Configuration {
	return d.cfg
}

// Decode runs the batch and renders the hypotheses through the alphabet.
func (d *Decoder) Decode(ctx context.Context, tid string, batch decoder.Batch) (*types.DecodeResponse, error) {
	result, err := d.batch.Decode(ctx, batch)
	if err != nil {
		return nil, err
	}
	return buildResponse(tid, d.cfg.Name, d.batch.Alphabet(), d.batch.Config().BeamWidth, result), nil
}

// ScorerInfo returns scorer.ErrNoScorer when no language model is configured.
func (d *Decoder) ScorerInfo() (*scorer.Info, error) {
	info := d.batch.Scorer().Info()
	if info == nil {
		return nil, scorer.ErrNoScorer
	}
	return info, nil
}

// ResetScorer changes alpha and beta for the calls that start afterwards.
func (d *Decoder) ResetScorer(params scorer.Params) (*scorer.Info, error) {
	if err := d.batch.Scorer().ResetParams(params.Alpha, params.Beta); err != nil {
		return nil, err
	}
	d.ctcLogger.Info().
		Float64("alpha", params.Alpha).
		Float64("beta", params.Beta).
		Msg("Reset language model weights")
	return d.ScorerInfo()
}

func (d *Decoder) Close() {
	if d.lmScorer != nil {
		d.lmScorer.Close()
	}
}
