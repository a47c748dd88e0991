// Package cmd implements the oggstream command tree.
package cmd

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/thesyncim/oggstream/internal/config"
)

// app carries state resolved by the root command for its subcommands.
type app struct {
	configPath string
	logLevel   string

	cfg config.Config
	log zerolog.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "oggstream",
		Short: "Stream PCM audio into and out of Ogg",
		Long: `oggstream encodes raw little-endian PCM into compressed Ogg streams,
decodes them back to raw PCM and reports stream metadata. Sessions run
against a bounded pool; see "batch" for concurrent encoding.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file (default: oggstream.yaml in ., the XDG config dir or ~/.oggstream)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		newEncodeCommand(a),
		newDecodeCommand(a),
		newInfoCommand(a),
		newToneCommand(a),
		newBatchCommand(a),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		level, err := config.ParseLevel(a.logLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	a.cfg = cfg

	out := zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}
	if f, ok := cmd.ErrOrStderr().(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		out.NoColor = true
	}
	a.log = zerolog.New(out).Level(cfg.LogLevel).With().Timestamp().Logger()
	a.log.Debug().
		Str("config", a.configPath).
		Int("encoder_slots", cfg.EncoderSlots).
		Int("decoder_slots", cfg.DecoderSlots).
		Msg("configuration loaded")
	return nil
}
