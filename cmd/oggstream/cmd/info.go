package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thesyncim/oggstream"
	"github.com/thesyncim/oggstream/container/ogg"
)

type sectionInfo struct {
	Serial uint32 `json:"serial" yaml:"serial"`
	Pages  int    `json:"pages" yaml:"pages"`
	Frames int64  `json:"frames" yaml:"frames"`
}

type streamReport struct {
	Path       string        `json:"path" yaml:"path"`
	MIME       string        `json:"mime" yaml:"mime"`
	Codec      string        `json:"codec" yaml:"codec"`
	Channels   int           `json:"channels" yaml:"channels"`
	SampleRate int           `json:"sample_rate" yaml:"sample_rate"`
	Length     int64         `json:"length" yaml:"length"`
	Duration   string        `json:"duration" yaml:"duration"`
	Comments   []string      `json:"comments,omitempty" yaml:"comments,omitempty"`
	Sections   []sectionInfo `json:"sections" yaml:"sections"`
}

var outputFormats = []string{"text", "json", "yaml"}

func newInfoCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "info <file.ogg>...",
		Short: "Show stream parameters, length and chained sections",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				r, err := inspect(a, path)
				if err != nil {
					return errors.Wrap(err, path)
				}
				if err := printReport(cmd.OutOrStdout(), r, output); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, json or yaml)")
	cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return outputFormats, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func inspect(a *app, path string) (streamReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return streamReport{}, err
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return streamReport{}, err
	}
	if !isOgg(mtype) {
		return streamReport{}, errors.Wrapf(oggstream.ErrCorruptStream, "not an Ogg stream (detected %s)", mtype)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return streamReport{}, err
	}

	pages, err := ogg.Scan(f)
	if err != nil {
		a.log.Warn().Err(err).Str("path", path).Int("pages", len(pages)).Msg("scan stopped early")
	}
	r := streamReport{Path: path, MIME: mtype.String()}
	for _, link := range ogg.Links(pages) {
		r.Sections = append(r.Sections, sectionInfo{
			Serial: link[0].Serial,
			Pages:  len(link),
			Frames: ogg.LastGranule(link),
		})
	}

	dec, err := oggstream.OpenDecoder(f, a.cfg.HostOptions(a.log)...)
	if err != nil {
		return streamReport{}, err
	}
	defer dec.Close()
	info := dec.Info()
	r.Codec, r.Channels, r.SampleRate, r.Length = info.Codec, info.Channels, info.SampleRate, info.Length
	if info.SampleRate > 0 {
		r.Duration = (time.Duration(info.Length) * time.Second / time.Duration(info.SampleRate)).String()
	}
	if c, ok := dec.Comment(); ok {
		r.Comments = append(r.Comments, "vendor="+c.Vendor)
		r.Comments = append(r.Comments, c.Tags...)
	}
	return r, nil
}

// isOgg reports whether m is application/ogg or one of its audio/video
// refinements.
func isOgg(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("application/ogg") {
			return true
		}
	}
	return false
}

func printReport(w io.Writer, r streamReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "text":
	default:
		return errors.Errorf("unknown output format %q", format)
	}

	fmt.Fprintf(w, "%s\n", r.Path)
	fmt.Fprintf(w, "  mime:        %s\n", r.MIME)
	fmt.Fprintf(w, "  codec:       %s\n", r.Codec)
	fmt.Fprintf(w, "  channels:    %d\n", r.Channels)
	fmt.Fprintf(w, "  sample rate: %d Hz\n", r.SampleRate)
	fmt.Fprintf(w, "  length:      %d frames (%s)\n", r.Length, r.Duration)
	for _, c := range r.Comments {
		fmt.Fprintf(w, "  comment:     %s\n", c)
	}
	for i, s := range r.Sections {
		fmt.Fprintf(w, "  section %d:   serial %08x, %d pages, %d frames\n", i, s.Serial, s.Pages, s.Frames)
	}
	return nil
}
