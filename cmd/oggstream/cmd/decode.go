package cmd

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/thesyncim/oggstream"
)

type decodeOptions struct {
	in, out string
	format  string
	start   int64
}

func newDecodeCommand(a *app) *cobra.Command {
	opts := &decodeOptions{}
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode an Ogg stream to raw PCM",
		Example: `  oggstream decode --in voice.ogg --out voice.raw
  oggstream decode --in music.ogg --start 441000 | aplay -f S16_LE -r 44100 -c 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, a, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.in, "in", "i", "-", "Ogg input file, - for stdin")
	flags.StringVarP(&opts.out, "out", "o", "-", "Raw PCM output file, - for stdout")
	flags.StringVarP(&opts.format, "format", "f", "s16le", "Output sample format: s16le or f32le")
	flags.Int64Var(&opts.start, "start", 0, "Frame to start decoding at (needs a seekable input)")
	return cmd
}

func runDecode(cmd *cobra.Command, a *app, opts *decodeOptions) error {
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}
	in, err := openInput(cmd, opts.in)
	if err != nil {
		return err
	}
	defer in.Close()

	dec, err := oggstream.OpenDecoder(in, a.cfg.HostOptions(a.log)...)
	if err != nil {
		return err
	}
	defer dec.Close()
	if opts.start > 0 {
		if err := dec.Seek(opts.start); err != nil {
			return err
		}
	}

	out, err := createOutput(cmd, opts.out)
	if err != nil {
		return err
	}
	n, copyErr := io.Copy(out, oggstream.NewReader(dec, format))
	if err := out.Close(); err != nil && copyErr == nil {
		copyErr = errors.Wrap(err, "close output")
	}
	if copyErr != nil {
		return copyErr
	}

	info := dec.Info()
	a.log.Info().
		Str("codec", info.Codec).
		Int("channels", info.Channels).
		Int("sample_rate", info.SampleRate).
		Int("section", dec.Section()).
		Int64("bytes", n).
		Msg("decoded")
	return nil
}
