package decoder

import (
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"runtime"
	"text2phenotype.com/ctcdecode/alphabet"
	"text2phenotype.com/ctcdecode/logger"
	"text2phenotype.com/ctcdecode/scorer"
)

var ErrInvalidInput = errors.New("invalid decoder input")

// Batch is [batch][timesteps][labels] emissions with an optional effective
// length per item. Missing lengths default to the item's timestep count;
// longer lengths are clamped to it.
type Batch struct {
	Probs   [][][]float64 `json:"probs"`
	SeqLens []int         `json:"seq_lens,omitempty"`
}

func (batch Batch) seqLen(i int) int {
	seqLen := len(batch.Probs[i])
	if batch.SeqLens != nil && batch.SeqLens[i] < seqLen {
		seqLen = batch.SeqLens[i]
	}
	if seqLen < 0 {
		seqLen = 0
	}
	return seqLen
}

func (batch Batch) maxTimesteps() int {
	maxTimesteps := 0
	for _, item := range batch.Probs {
		if len(item) > maxTimesteps {
			maxTimesteps = len(item)
		}
	}
	return maxTimesteps
}

// BatchDecoder decodes independent sequences on a bounded pool of goroutines.
// The alphabet and scorer are shared read-only between workers.
type BatchDecoder struct {
	alphabet  *alphabet.Alphabet
	scorer    scorer.Scorer
	config    Config
	ctcLogger *zerolog.Logger
}

// New validates the configuration. A nil scorer means pure acoustic decoding.
// Zero workers means one per available CPU.
func New(a *alphabet.Alphabet, sc scorer.Scorer, cfg Config) (*BatchDecoder, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: alphabet is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sc == nil {
		sc = scorer.NoScorer{}
	}
	if cfg.NumWorkers == 0 {
		cfg.NumWorkers = runtime.GOMAXPROCS(0)
	}
	ctcLogger := logger.NewLogger("BatchDecoder")
	return &BatchDecoder{
		alphabet:  a,
		scorer:    sc,
		config:    cfg,
		ctcLogger: &ctcLogger,
	}, nil
}

func (d *BatchDecoder) Alphabet() *alphabet.Alphabet {
	return d.alphabet
}

func (d *BatchDecoder) Scorer() scorer.Scorer {
	return d.scorer
}

func (d *BatchDecoder) Config() Config {
	return d.config
}

// Decode decodes every item of the batch. Items that cannot be decoded get an
// empty output with Err set; only invalid input, a failing scorer or a done
// ctx fail the whole call. Scorer weights are read once per call.
// A sequence that has started is always decoded to the end.
func (d *BatchDecoder) Decode(ctx context.Context, batch Batch) (*BatchResult, error) {
	if err := d.validate(batch); err != nil {
		return nil, err
	}
	params := d.scorer.Params()
	outputs := make([]Output, len(batch.Probs))
	d.ctcLogger.Debug().
		Int("batch_size", len(batch.Probs)).
		Int("workers", d.config.NumWorkers).
		Float64("alpha", params.Alpha).
		Float64("beta", params.Beta).
		Msg("Decoding batch")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.NumWorkers)
	for i := range batch.Probs {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seq := NewSequenceDecoder(d.alphabet, d.scorer, params, d.config)
			out, err := seq.Decode(batch.Probs[i], batch.seqLen(i))
			if err != nil && !isSequenceFailure(err) {
				return fmt.Errorf("sequence %d: %w", i, err)
			}
			if err != nil {
				d.ctcLogger.Warn().Err(err).Int("sequence", i).Msg("Could not decode sequence, returning empty result")
			}
			outputs[i] = out
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		d.ctcLogger.Err(err).Msg("Batch decoding failed")
		return nil, err
	}
	return newBatchResult(outputs, d.config.BeamWidth, batch.maxTimesteps()), nil
}

// DecodeSequence decodes a single sequence with the current scorer weights.
func (d *BatchDecoder) DecodeSequence(probs [][]float64, seqLen int) (Output, error) {
	result, err := d.Decode(context.Background(), Batch{Probs: [][][]float64{probs}, SeqLens: []int{seqLen}})
	if err != nil {
		return Output{}, err
	}
	return result.Outputs[0], nil
}

func (d *BatchDecoder) validate(batch Batch) error {
	if batch.SeqLens != nil && len(batch.SeqLens) != len(batch.Probs) {
		return fmt.Errorf("%w: %d sequence lengths for %d sequences", ErrInvalidInput, len(batch.SeqLens), len(batch.Probs))
	}
	for i := range batch.Probs {
		seqLen := batch.seqLen(i)
		for t := 0; t < seqLen; t++ {
			if len(batch.Probs[i][t]) != d.alphabet.Size() {
				return fmt.Errorf(
					"%w: sequence %d timestep %d: %w: got %d, alphabet has %d labels",
					ErrInvalidInput, i, t, ErrShapeMismatch, len(batch.Probs[i][t]), d.alphabet.Size(),
				)
			}
		}
	}
	return nil
}
