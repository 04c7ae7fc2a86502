package cmds

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-go-golems/logship/pkg/codec"
	"github.com/go-go-golems/logship/pkg/config"
	"github.com/go-go-golems/logship/pkg/input"
	"github.com/go-go-golems/logship/pkg/output"
	"github.com/go-go-golems/logship/pkg/pipeline"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the log router until the process is terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return err
			}

			p, err := buildPipeline(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().
				Int("inputs", len(p.Inputs)).
				Int("outputs", len(p.Outputs)).
				Msg("starting pipeline")
			err = p.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	addConfigFlag(cmd.Flags(), &configPath)
	return cmd
}

func newCheckConfigCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate the config file and the templates it references",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return err
			}
			if _, err := buildPipeline(cfg); err != nil {
				return err
			}
			cmd.Println("config ok")
			return nil
		},
	}

	addConfigFlag(cmd.Flags(), &configPath)
	return cmd
}

func addConfigFlag(fs *pflag.FlagSet, configPath *string) {
	fs.StringVarP(configPath, "config", "c", config.DefaultConfigFilename, "path to config file")
}

func buildPipeline(cfg *config.File) (*pipeline.Pipeline, error) {
	p := &pipeline.Pipeline{
		Buffer:        cfg.Buffer,
		RequiredField: cfg.RequireField,
	}

	for i, in := range cfg.Inputs {
		switch in.Type {
		case "tcp":
			c, err := codec.ForName(in.Codec)
			if err != nil {
				return nil, errors.Wrapf(err, "inputs[%d]", i)
			}
			p.Inputs = append(p.Inputs, input.NewTCP(in.Listen, c))
		default:
			return nil, errors.Errorf("inputs[%d]: unknown input type %q", i, in.Type)
		}
	}

	for i, out := range cfg.Outputs {
		switch out.Type {
		case "file":
			sink, err := output.NewFile(out.Path, out.Format)
			if err != nil {
				return nil, errors.Wrapf(err, "outputs[%d]", i)
			}
			p.Outputs = append(p.Outputs, sink)
		case "elasticsearch":
			p.Outputs = append(p.Outputs, output.NewElasticsearch(output.ElasticsearchConfig{
				URL:           out.URL,
				Index:         out.Index,
				FlushCount:    out.FlushCount,
				FlushInterval: out.FlushIntervalDuration(),
			}))
		case "null":
			p.Outputs = append(p.Outputs, output.Null{})
		default:
			return nil, errors.Errorf("outputs[%d]: unknown output type %q", i, out.Type)
		}
	}

	return p, nil
}
