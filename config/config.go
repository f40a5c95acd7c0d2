// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/omnisearch/ai"
	"github.com/poiesic/omnisearch/dataset"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Duration decodes from a Go duration string ("5m", "6h") or from a bare
// number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if secs, err := strconv.ParseFloat(node.Value, 64); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Embedding struct {
	Host       string   `yaml:"host"`
	Model      string   `yaml:"model"`
	BatchSize  int      `yaml:"batch_size"`
	MaxRetries int      `yaml:"max_retries"`
	RetryDelay Duration `yaml:"retry_delay"`
}

type Config struct {
	DataDir             string    `yaml:"data_dir"`
	MaxResults          int       `yaml:"max_results"`
	SimilarityThreshold float32   `yaml:"similarity_threshold"`
	CheckInterval       Duration  `yaml:"check_interval"`
	ReindexInterval     Duration  `yaml:"reindex_interval"`
	SearchTimeout       Duration  `yaml:"search_timeout"`
	Watch               bool      `yaml:"watch"`
	WatchDebounce       Duration  `yaml:"watch_debounce"`
	Encodings           []string  `yaml:"encodings"`
	PoolSize            int       `yaml:"pool_size"`
	VectorCacheDir      string    `yaml:"vector_cache_dir"`
	LogLevel            string    `yaml:"log_level"`
	Embedding           Embedding `yaml:"embedding"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	aiCfg := ai.DefaultConfig()
	return &Config{
		DataDir:             "databases",
		MaxResults:          50,
		SimilarityThreshold: 0.3,
		CheckInterval:       Duration(300 * time.Second),
		ReindexInterval:     Duration(6 * time.Hour),
		SearchTimeout:       Duration(10 * time.Second),
		WatchDebounce:       Duration(2 * time.Second),
		Encodings:           append([]string(nil), dataset.DefaultEncodings...),
		LogLevel:            "info",
		Embedding: Embedding{
			Host:       aiCfg.EmbeddingHost,
			Model:      aiCfg.EmbeddingModel,
			BatchSize:  aiCfg.BatchSize,
			MaxRetries: aiCfg.MaxRetries,
			RetryDelay: Duration(aiCfg.RetryDelay),
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values; unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a YAML document over the defaults.
func Read(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks every field and reports the first problem.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DataDir) == "":
		return fmt.Errorf("%w: data_dir is required", ErrInvalidConfig)
	case c.MaxResults < 1:
		return fmt.Errorf("%w: max_results must be greater than 0", ErrInvalidConfig)
	case c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1:
		return fmt.Errorf("%w: similarity_threshold must be within [-1, 1]", ErrInvalidConfig)
	case c.CheckInterval <= 0:
		return fmt.Errorf("%w: check_interval must be positive", ErrInvalidConfig)
	case c.ReindexInterval <= 0:
		return fmt.Errorf("%w: reindex_interval must be positive", ErrInvalidConfig)
	case c.SearchTimeout < 0:
		return fmt.Errorf("%w: search_timeout cannot be negative", ErrInvalidConfig)
	case c.PoolSize < 0:
		return fmt.Errorf("%w: pool_size cannot be negative", ErrInvalidConfig)
	}
	if _, err := dataset.LookupEncodings(c.Encodings); err != nil {
		return fmt.Errorf("%w: encodings: %w", ErrInvalidConfig, err)
	}
	if len(c.Encodings) == 0 {
		return fmt.Errorf("%w: encodings cannot be empty", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.AI().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AI returns the embedding client configuration.
func (c *Config) AI() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithBatchSize(c.Embedding.BatchSize),
		ai.WithRetry(c.Embedding.MaxRetries, c.Embedding.RetryDelay.Std()),
	)
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
