// Package oggstream streams PCM audio into and out of compressed Ogg
// bitstreams, with a bounded pool of concurrent sessions.
//
// An EncodeSession takes interleaved int16 PCM, hands it to a codec engine
// in fixed-size chunks and writes the resulting Ogg pages to a sink. The
// header packets are always flushed onto their own pages first, and the
// final page carries the end-of-stream flag exactly once. A DecodeSession
// reads an Ogg source back into interleaved int16 PCM, reports chained
// links as sections and supports sample-accurate seeking on seekable
// sources.
//
// # Sessions and handles
//
// A Host owns two fixed-capacity pools (4 encoders and 8 decoders by
// default). Acquiring a session returns a Handle; every later call
// validates the handle before doing any work:
//
//	host := oggstream.NewHost()
//	h, err := host.CreateEncoder("out.ogg", 2, 44100, 0.4)
//	if errors.Is(err, oggstream.ErrResourceExhausted) {
//	    // every slot is busy; retry later
//	}
//	n, err := host.EncoderWrite(h, pcm, 0, len(pcm))
//	err = host.EncoderClose(h)
//
// Sessions can also be used directly with OpenEncoder and OpenDecoder when
// no pooling is needed.
//
// # Units
//
// offset and length always index the caller's interleaved []int16 buffer.
// Write returns frames consumed; Read returns samples written.
//
// # Codec engines
//
// Engines are looked up in a codec.Registry. DefaultRegistry provides
// "zpcm" (a quantizing zstd block codec that can encode and decode) and
// "vorbis" (decode only).
//
// Operations on one session must be serialized by the caller; distinct
// sessions may run concurrently.
package oggstream
