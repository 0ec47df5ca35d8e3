package types

import (
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text2phenotype.com/ctcdecode/alphabet"
	"text2phenotype.com/ctcdecode/decoder"
	"text2phenotype.com/ctcdecode/logger"
	"text2phenotype.com/ctcdecode/scorer"
)

const configExtension = ".yaml"

var ErrDuplicateConfig = errors.New("duplicate configuration name")

// Configuration describes one named decoder: its label set, search
// parameters and an optional ARPA language model.
type Configuration struct {
	Name           string `yaml:"name" json:"name"`
	FilePath       string `yaml:"-" json:"file_path"`
	Labels         string `yaml:"labels" json:"labels"`
	BlankID        int    `yaml:"blank_id" json:"blank_id"`
	LanguageModel  string `yaml:"lm_path" json:"lm_path,omitempty"`
	decoder.Config `yaml:",inline"`
	scorer.Params  `yaml:",inline"`
}

// DefaultConfiguration returns a configuration with the decoder defaults and
// blank at index 0.
func DefaultConfiguration(name string) Configuration {
	return Configuration{
		Name:   name,
		Config: decoder.DefaultConfig(),
	}
}

func (cfg Configuration) HasLanguageModel() bool {
	return len(cfg.LanguageModel) > 0
}

func (cfg Configuration) Alphabet() (*alphabet.Alphabet, error) {
	return alphabet.FromString(cfg.Labels, cfg.BlankID)
}

func (cfg Configuration) Validate() error {
	if len(cfg.Name) == 0 {
		return fmt.Errorf("%w: name is empty", decoder.ErrInvalidConfig)
	}
	if _, err := cfg.Alphabet(); err != nil {
		return fmt.Errorf("%w: %w", decoder.ErrInvalidConfig, err)
	}
	return cfg.Config.Validate()
}

// ParseConfiguration decodes YAML on top of the defaults so omitted fields
// keep their default values.
func ParseConfiguration(name string, buf []byte) (Configuration, error) {
	cfg := DefaultConfiguration(name)
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadConfigurations reads every *.yaml file of dirPath concurrently. Files
// that fail to load are skipped and reported in the returned error, sorted
// valid configurations are returned either way.
func LoadConfigurations(dirPath string) ([]Configuration, error) {
	ctcLogger := logger.NewLogger("LoadConfigurations")

	files, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	configChan := make(chan Configuration, len(files))
	errChan := make(chan error, len(files))
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), configExtension) {
			continue
		}

		wg.Add(1)
		go func(fileName string) {
			defer wg.Done()
			filePath := filepath.Join(dirPath, fileName)
			buf, err := os.ReadFile(filePath)
			if err != nil {
				errChan <- err
				return
			}
			cfg, err := ParseConfiguration(strings.TrimSuffix(fileName, configExtension), buf)
			if err != nil {
				ctcLogger.Err(err).Str("file_path", filePath).Msg("Skipping invalid configuration")
				errChan <- fmt.Errorf("%s: %w", fileName, err)
				return
			}
			cfg.FilePath = filePath
			configChan <- cfg
		}(f.Name())
	}
	wg.Wait()
	close(configChan)
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	loaded := make([]Configuration, 0, len(configChan))
	for cfg := range configChan {
		loaded = append(loaded, cfg)
	}
	sort.Slice(loaded, func(i, j int) bool {
		if loaded[i].Name != loaded[j].Name {
			return loaded[i].Name < loaded[j].Name
		}
		return loaded[i].FilePath < loaded[j].FilePath
	})
	configs := make([]Configuration, 0, len(loaded))
	for _, cfg := range loaded {
		if n := len(configs); n > 0 && configs[n-1].Name == cfg.Name {
			errs = append(errs, fmt.Errorf("%w: %q in %s and %s", ErrDuplicateConfig, cfg.Name, configs[n-1].FilePath, cfg.FilePath))
			continue
		}
		configs = append(configs, cfg)
	}
	sort.Slice(errs, func(i, j int) bool {
		return errs[i].Error() < errs[j].Error()
	})
	return configs, errors.Join(errs...)
}
