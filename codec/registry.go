package codec

import (
	"bytes"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/thesyncim/oggstream/container/ogg"
)

// Registry maps engine names to codecs. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	codecs []Codec
}

// NewRegistry creates a registry holding cs, in probe order.
func NewRegistry(cs ...Codec) *Registry {
	r := &Registry{}
	for _, c := range cs {
		r.Register(c)
	}
	return r
}

// Register adds c, replacing an engine of the same name.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, have := range r.codecs {
		if have.Name() == c.Name() {
			r.codecs[i] = c
			return
		}
	}
	r.codecs = append(r.codecs, c)
}

// Lookup returns the engine registered under name.
func (r *Registry) Lookup(name string) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.codecs {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownCodec, "%q", name)
}

// Names lists the registered engines in probe order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.codecs))
	for i, c := range r.codecs {
		names[i] = c.Name()
	}
	return names
}

// Probe reads the first page of src and returns the engine whose
// identification header it carries, along with a reader positioned at the
// start of the stream. A seekable src is rewound; otherwise the consumed
// bytes are replayed ahead of the rest of src.
func (r *Registry) Probe(src io.Reader) (Codec, io.Reader, error) {
	var start int64
	seeker, seekable := src.(io.ReadSeeker)
	if seekable {
		pos, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			seekable = false
		}
		start = pos
	}

	var consumed bytes.Buffer
	page, _, err := ogg.NewDemuxer(io.TeeReader(src, &consumed)).ReadPage()
	if err != nil {
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, ogg.ErrInvalidPage),
			errors.Is(err, ogg.ErrBadCRC), errors.Is(err, ogg.ErrUnexpectedEOS):
			return nil, nil, errors.Wrapf(ErrCorrupt, "codec: probe: %v", err)
		}
		return nil, nil, errors.Wrap(err, "codec: probe")
	}

	var rest io.Reader
	if seekable {
		if _, err := seeker.Seek(start, io.SeekStart); err != nil {
			return nil, nil, errors.Wrap(err, "codec: probe rewind")
		}
		rest = seeker
	} else {
		rest = io.MultiReader(&consumed, src)
	}

	pkts := page.Packets()
	if !page.IsBOS() || len(pkts) == 0 {
		return nil, nil, errors.Wrap(ErrCorrupt, "codec: probe: first page carries no identification header")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.codecs {
		if c.Match(pkts[0]) {
			return c, rest, nil
		}
	}
	return nil, nil, ErrUnknownCodec
}
