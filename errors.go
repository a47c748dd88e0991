// errors.go defines public error types for the oggstream package.

package oggstream

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Every error returned by a session matches exactly one of
// these with errors.Is.
var (
	// ErrResourceExhausted indicates every slot of a pool is in use.
	// Callers retry or reject the request; acquisition never blocks.
	ErrResourceExhausted = errors.New("oggstream: no free session slot")

	// ErrInvalidHandle indicates a handle that is out of range, not open,
	// or belongs to a closed session.
	ErrInvalidHandle = errors.New("oggstream: invalid session handle")

	// ErrInitialization indicates the codec engine rejected the stream
	// parameters.
	ErrInitialization = errors.New("oggstream: codec rejected stream parameters")

	// ErrCorruptStream indicates a header or audio section could not be
	// decoded. The concrete error is a *CorruptStreamError.
	ErrCorruptStream = errors.New("oggstream: corrupt stream")

	// ErrBufferOverflow indicates offset and length fall outside the
	// caller's buffer. Nothing is consumed.
	ErrBufferOverflow = errors.New("oggstream: offset and length exceed buffer")

	// ErrSeek indicates a seek target that is out of range or unreachable.
	ErrSeek = errors.New("oggstream: seek failed")

	// ErrIO indicates a failure of the sink or source.
	ErrIO = errors.New("oggstream: I/O error")

	// ErrEngine indicates a codec engine failure during encoding.
	ErrEngine = errors.New("oggstream: codec engine error")

	// ErrEndOfStream is returned by Read once no more samples remain.
	ErrEndOfStream = errors.New("oggstream: end of stream")
)

// CorruptStreamError reports an undecodable stream section.
type CorruptStreamError struct {
	// Section is the index of the chained link being decoded.
	Section int
	Err     error
}

func (e *CorruptStreamError) Error() string {
	return fmt.Sprintf("oggstream: corrupt stream in section %d: %v", e.Section, e.Err)
}

// Is matches ErrCorruptStream.
func (e *CorruptStreamError) Is(target error) bool { return target == ErrCorruptStream }

func (e *CorruptStreamError) Unwrap() error { return e.Err }

// kindError attaches an error kind to a collaborator failure.
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string { return e.kind.Error() + ": " + e.err.Error() }

func (e *kindError) Is(target error) bool { return target == e.kind }

func (e *kindError) Unwrap() error { return e.err }

// withKind tags err with kind unless it already carries it.
func withKind(kind, err error) error {
	if err == nil || errors.Is(err, kind) {
		return err
	}
	return &kindError{kind: kind, err: err}
}
