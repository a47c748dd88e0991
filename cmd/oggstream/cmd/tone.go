package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thesyncim/oggstream"
	"github.com/thesyncim/oggstream/internal/testsignal"
)

type toneOptions struct {
	out        string
	kind       string
	freq       float64
	seconds    float64
	channels   int
	sampleRate int
	quality    float32
}

func newToneCommand(a *app) *cobra.Command {
	opts := &toneOptions{}
	cmd := &cobra.Command{
		Use:   "tone",
		Short: "Write a generated test signal as an Ogg stream",
		Example: `  oggstream tone --out a440.ogg
  oggstream tone --kind chirp --seconds 3 --rate 48000 --out sweep.ogg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("quality") {
				opts.quality = a.cfg.Quality
			}
			return runTone(cmd, a, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.out, "out", "o", "tone.ogg", "Ogg output file, - for stdout")
	flags.StringVar(&opts.kind, "kind", testsignal.KindSine, "Signal: "+strings.Join(testsignal.Kinds(), ", "))
	flags.Float64Var(&opts.freq, "freq", 440, "Sine frequency in Hz")
	flags.Float64Var(&opts.seconds, "seconds", 1, "Duration in seconds")
	flags.IntVarP(&opts.channels, "channels", "c", 2, "Channel count")
	flags.IntVarP(&opts.sampleRate, "rate", "r", 44100, "Sample rate in Hz")
	flags.Float32VarP(&opts.quality, "quality", "q", 0.4, "Quality from -0.1 to 1 (default from config)")

	cmd.RegisterFlagCompletionFunc("kind", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return testsignal.Kinds(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runTone(cmd *cobra.Command, a *app, opts *toneOptions) error {
	pcm, err := testsignal.Generate(testsignal.Params{
		Kind:       opts.kind,
		SampleRate: opts.sampleRate,
		Channels:   opts.channels,
		Frames:     int(opts.seconds * float64(opts.sampleRate)),
		Freq:       opts.freq,
	})
	if err != nil {
		return err
	}

	out, err := createOutput(cmd, opts.out)
	if err != nil {
		return err
	}
	enc, err := oggstream.OpenEncoder(out, oggstream.EncoderConfig{
		Channels:   opts.channels,
		SampleRate: opts.sampleRate,
		Quality:    opts.quality,
		Codec:      a.cfg.Codec,
	}, append(a.cfg.HostOptions(a.log), oggstream.WithComments("TITLE="+opts.kind))...)
	if err != nil {
		out.Close()
		return err
	}

	frames, werr := enc.Write(pcm, 0, len(pcm))
	cerr := enc.Close()
	if err := out.Close(); err != nil && cerr == nil {
		cerr = err
	}
	if werr != nil {
		return werr
	}
	if cerr != nil {
		return cerr
	}

	if opts.out != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d frames of %s, pcm sha256 %s\n", opts.out, frames, opts.kind, testsignal.Hash(pcm))
	}
	return nil
}
