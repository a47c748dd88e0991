package cmd

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/thesyncim/oggstream"
)

type encodeOptions struct {
	in, out    string
	channels   int
	sampleRate int
	quality    float32
	codec      string
	format     string
	comments   []string
}

func newEncodeCommand(a *app) *cobra.Command {
	opts := &encodeOptions{}
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode raw PCM into an Ogg stream",
		Example: `  oggstream encode --in voice.raw --out voice.ogg --channels 1 --rate 16000
  arecord -f S16_LE -r 44100 -c 2 | oggstream encode --out live.ogg --quality 0.6`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("quality") {
				opts.quality = a.cfg.Quality
			}
			if opts.codec == "" {
				opts.codec = a.cfg.Codec
			}
			return runEncode(cmd, a, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.in, "in", "i", "-", "Raw PCM input file, - for stdin")
	flags.StringVarP(&opts.out, "out", "o", "-", "Ogg output file, - for stdout")
	flags.IntVarP(&opts.channels, "channels", "c", 2, "Channel count")
	flags.IntVarP(&opts.sampleRate, "rate", "r", 44100, "Sample rate in Hz")
	flags.Float32VarP(&opts.quality, "quality", "q", 0.4, "Quality from -0.1 to 1 (default from config)")
	flags.StringVar(&opts.codec, "codec", "", "Codec engine (default from config)")
	flags.StringVarP(&opts.format, "format", "f", "s16le", "Input sample format: s16le or f32le")
	flags.StringArrayVar(&opts.comments, "comment", nil, "Comment tag KEY=value (repeatable)")

	cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"s16le", "f32le"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runEncode(cmd *cobra.Command, a *app, opts *encodeOptions) error {
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}
	in, err := openInput(cmd, opts.in)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := createOutput(cmd, opts.out)
	if err != nil {
		return err
	}

	sessionOpts := append(a.cfg.HostOptions(a.log), oggstream.WithComments(opts.comments...))
	enc, err := oggstream.OpenEncoder(out, oggstream.EncoderConfig{
		Channels:   opts.channels,
		SampleRate: opts.sampleRate,
		Quality:    opts.quality,
		Codec:      opts.codec,
	}, sessionOpts...)
	if err != nil {
		out.Close()
		return err
	}

	w := oggstream.NewWriter(enc, format)
	n, copyErr := io.Copy(w, in)
	closeErr := w.Close()
	if err := out.Close(); err != nil && closeErr == nil {
		closeErr = errors.Wrap(err, "close output")
	}
	if copyErr != nil {
		return errors.Wrap(copyErr, "encode")
	}
	if closeErr != nil {
		return closeErr
	}

	a.log.Info().
		Int64("input_bytes", n).
		Int("pages", enc.Pages()).
		Int64("bytes", enc.Bytes()).
		Str("codec", opts.codec).
		Msg("encoded")
	return nil
}

func parseFormat(s string) (oggstream.SampleFormat, error) {
	switch s {
	case "s16le", "":
		return oggstream.FormatInt16LE, nil
	case "f32le":
		return oggstream.FormatFloat32LE, nil
	}
	return 0, errors.Errorf("unknown sample format %q (want s16le or f32le)", s)
}

func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open input")
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func createOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create output")
	}
	return f, nil
}
