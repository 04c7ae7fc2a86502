package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFilename = "logship.yaml"

type File struct {
	Inputs  []Input  `yaml:"inputs"`
	Outputs []Output `yaml:"outputs"`

	// Buffer sizes the ingestion channel and each per-output channel.
	Buffer int `yaml:"buffer,omitempty"`

	// RequireField overrides the dispatcher's required field ("message").
	RequireField string `yaml:"require_field,omitempty"`
}

type Input struct {
	Type   string `yaml:"type"` // "tcp"
	Listen string `yaml:"listen,omitempty"`
	Codec  string `yaml:"codec,omitempty"` // "json"
}

type Output struct {
	Type string `yaml:"type"` // "file" | "elasticsearch" | "null"

	// File sink.
	Path   string `yaml:"path,omitempty"`
	Format string `yaml:"format,omitempty"`

	// Elasticsearch sink.
	URL           string `yaml:"url,omitempty"`
	Index         string `yaml:"index,omitempty"`
	FlushCount    int    `yaml:"flush_count,omitempty"`
	FlushInterval string `yaml:"flush_interval,omitempty"`
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (f *File) Validate() error {
	if len(f.Inputs) == 0 {
		return errors.New("at least one input is required")
	}
	if len(f.Outputs) == 0 {
		return errors.New("at least one output is required")
	}
	for i, in := range f.Inputs {
		switch in.Type {
		case "tcp":
			if in.Listen == "" {
				return errors.Errorf("inputs[%d]: tcp input needs a listen address", i)
			}
		default:
			return errors.Errorf("inputs[%d]: unknown input type %q", i, in.Type)
		}
	}
	for i, out := range f.Outputs {
		switch out.Type {
		case "file":
			if out.Path == "" {
				return errors.Errorf("outputs[%d]: file output needs a path format", i)
			}
			if out.Format == "" {
				return errors.Errorf("outputs[%d]: file output needs a message format", i)
			}
		case "elasticsearch":
			if out.URL == "" {
				return errors.Errorf("outputs[%d]: elasticsearch output needs a url", i)
			}
			if out.FlushInterval != "" {
				if _, err := time.ParseDuration(out.FlushInterval); err != nil {
					return errors.Wrapf(err, "outputs[%d]: invalid flush_interval", i)
				}
			}
		case "null":
		default:
			return errors.Errorf("outputs[%d]: unknown output type %q", i, out.Type)
		}
	}
	return nil
}

// FlushIntervalDuration returns the parsed flush interval, or zero when
// unset so the sink falls back to its default.
func (o Output) FlushIntervalDuration() time.Duration {
	if o.FlushInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(o.FlushInterval)
	if err != nil {
		return 0
	}
	return d
}
