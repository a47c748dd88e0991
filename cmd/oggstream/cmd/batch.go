package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thesyncim/oggstream"
)

type batchOptions struct {
	outDir      string
	channels    int
	sampleRate  int
	quality     float32
	format      string
	concurrency int
	maxWait     time.Duration
}

func newBatchCommand(a *app) *cobra.Command {
	opts := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch <file.raw>...",
		Short: "Encode many raw PCM files concurrently against the session pool",
		Long: `batch encodes every input file to <out-dir>/<name>.ogg. Jobs run
concurrently; when every encoder slot is busy a job backs off and retries
instead of failing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("quality") {
				opts.quality = a.cfg.Quality
			}
			return runBatch(cmd.Context(), cmd, a, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.outDir, "out-dir", "d", ".", "Directory for the .ogg outputs")
	flags.IntVarP(&opts.channels, "channels", "c", 2, "Channel count")
	flags.IntVarP(&opts.sampleRate, "rate", "r", 44100, "Sample rate in Hz")
	flags.Float32VarP(&opts.quality, "quality", "q", 0.4, "Quality from -0.1 to 1 (default from config)")
	flags.StringVarP(&opts.format, "format", "f", "s16le", "Input sample format: s16le or f32le")
	flags.IntVarP(&opts.concurrency, "jobs", "j", 0, "Concurrent jobs (default twice the encoder slots)")
	flags.DurationVar(&opts.maxWait, "max-wait", time.Minute, "Give up on a job that waits this long for a slot")
	return cmd
}

func runBatch(ctx context.Context, cmd *cobra.Command, a *app, opts *batchOptions, inputs []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	host := oggstream.NewHost(a.cfg.HostOptions(a.log)...)
	jobs := opts.concurrency
	if jobs <= 0 {
		jobs = 2 * a.cfg.EncoderSlots
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, in := range inputs {
		out := filepath.Join(opts.outDir, strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))+".ogg")
		g.Go(func() error {
			log := a.log.With().Str("input", in).Logger()
			start := time.Now()
			if err := encodeFile(ctx, host, log, in, out, format, opts); err != nil {
				return errors.Wrap(err, in)
			}
			log.Info().Str("output", out).Dur("took", time.Since(start)).Msg("encoded")
			return nil
		})
	}
	return g.Wait()
}

func encodeFile(ctx context.Context, host *oggstream.Host, log zerolog.Logger, in, out string, format oggstream.SampleFormat, opts *batchOptions) error {
	src, err := os.Open(in)
	if err != nil {
		return err
	}
	defer src.Close()

	h, err := acquireWithRetry(ctx, log, opts.maxWait, func() (oggstream.Handle, error) {
		return host.CreateEncoder(out, opts.channels, opts.sampleRate, opts.quality)
	})
	if err != nil {
		return err
	}
	enc, err := host.Encoder(h)
	if err != nil {
		return err
	}
	w := oggstream.NewWriter(enc, format)
	_, copyErr := io.Copy(w, src)
	if err := w.Close(); err != nil && copyErr == nil {
		copyErr = err
	}
	return copyErr
}

// Backoff bounds for acquireWithRetry.
var (
	retryInitial = 10 * time.Millisecond
	retryMax     = 500 * time.Millisecond
)

// acquireWithRetry calls acquire until it stops failing with
// ErrResourceExhausted, doubling the pause between attempts up to
// retryMax. It gives up after maxWait or when ctx ends.
func acquireWithRetry(ctx context.Context, log zerolog.Logger, maxWait time.Duration, acquire func() (oggstream.Handle, error)) (oggstream.Handle, error) {
	deadline := time.Now().Add(maxWait)
	wait := retryInitial
	for attempt := 1; ; attempt++ {
		h, err := acquire()
		if !errors.Is(err, oggstream.ErrResourceExhausted) {
			return h, err
		}
		if time.Now().Add(wait).After(deadline) {
			return -1, errors.Wrapf(err, "no slot after %d attempts", attempt)
		}
		log.Debug().Int("attempt", attempt).Dur("backoff", wait).Msg("pool exhausted, retrying")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return -1, ctx.Err()
		case <-t.C:
		}
		wait = min(2*wait, retryMax)
	}
}
