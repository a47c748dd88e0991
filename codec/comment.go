package codec

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// DefaultVendor is the vendor string written by oggstream engines.
const DefaultVendor = "oggstream"

// Comment is a Vorbis-style comment header: a vendor string and an ordered
// list of KEY=value tags.
type Comment struct {
	Vendor string
	Tags   []string
}

// NewComment returns a comment with the default vendor and an ENCODER tag.
func NewComment() Comment {
	return Comment{Vendor: DefaultVendor, Tags: []string{"ENCODER=" + DefaultVendor}}
}

// Add appends a KEY=value tag.
func (c *Comment) Add(key, value string) {
	c.Tags = append(c.Tags, key+"="+value)
}

// Get returns the first value for key, compared case-insensitively.
func (c Comment) Get(key string) (string, bool) {
	for _, tag := range c.Tags {
		k, v, ok := strings.Cut(tag, "=")
		if ok && strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// Encode serializes the comment behind prefix:
//
//	prefix
//	vendor length (u32 LE) + vendor
//	tag count (u32 LE)
//	per tag: length (u32 LE) + "KEY=value"
//	framing byte 0x01
func (c Comment) Encode(prefix []byte) []byte {
	size := len(prefix) + 4 + len(c.Vendor) + 4 + 1
	for _, tag := range c.Tags {
		size += 4 + len(tag)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.Vendor)))
	buf = append(buf, c.Vendor...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.Tags)))
	for _, tag := range c.Tags {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tag)))
		buf = append(buf, tag...)
	}
	return append(buf, 1)
}

// ParseComment decodes a comment packet written by Encode.
// Returns ErrCorrupt if the prefix does not match or the packet is truncated.
func ParseComment(data, prefix []byte) (Comment, error) {
	if !bytes.HasPrefix(data, prefix) {
		return Comment{}, ErrCorrupt
	}
	data = data[len(prefix):]

	next := func() (string, bool) {
		if len(data) < 4 {
			return "", false
		}
		n := binary.LittleEndian.Uint32(data)
		data = data[4:]
		if uint64(n) > uint64(len(data)) {
			return "", false
		}
		s := string(data[:n])
		data = data[n:]
		return s, true
	}

	var c Comment
	var ok bool
	if c.Vendor, ok = next(); !ok {
		return Comment{}, ErrCorrupt
	}
	if len(data) < 4 {
		return Comment{}, ErrCorrupt
	}
	count := binary.LittleEndian.Uint32(data)
	data = data[4:]
	// Each tag needs at least its length field.
	if uint64(count)*4 > uint64(len(data)) {
		return Comment{}, ErrCorrupt
	}
	c.Tags = make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		tag, ok := next()
		if !ok {
			return Comment{}, ErrCorrupt
		}
		c.Tags = append(c.Tags, tag)
	}
	if len(data) < 1 || data[0]&1 == 0 {
		return Comment{}, ErrCorrupt
	}
	return c, nil
}
