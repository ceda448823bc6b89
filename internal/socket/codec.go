package socket

import (
	"go.uber.org/zap"
)

// Codec recognizes and translates one wire format. Implementations own their
// framing convention entirely; the runtime imposes none.
type Codec interface {
	// Name identifies the codec in logs.
	Name() string
	// Verify cheaply reports whether data looks like this codec's format.
	// It must be side-effect free. A panic is treated as a non-match.
	Verify(data []byte) bool
	// Encode serializes a value into this codec's wire format.
	Encode(v any) ([]byte, error)
	// Decode parses data into a value. Returning (nil, nil) means the data
	// was recognized but malformed, which callers treat as "try the next
	// candidate" rather than an error.
	Decode(data []byte) (any, error)
}

// Format pairs a Codec with a factory that turns its decoded values into
// typed messages.
type Format struct {
	Codec      Codec
	NewMessage func(decoded any) Message
}

// CodecRegistry holds the formats a server recognizes, in registration order,
// with one format designated as the fallback for unrecognized input.
//
// Registration happens once at startup before any connections are served;
// Detect is read-only and safe for concurrent use afterward.
type CodecRegistry struct {
	logger   *zap.SugaredLogger
	formats  []*Format
	fallback *Format
}

func NewCodecRegistry(logger *zap.SugaredLogger) *CodecRegistry {
	return &CodecRegistry{logger: logger}
}

// Register appends a format to the detection order.
func (r *CodecRegistry) Register(f *Format) {
	r.formats = append(r.formats, f)
}

// RegisterDefault registers a format and designates it as the fallback used
// when no codec recognizes an inbound frame. The designation is an explicit
// role; the codec's name plays no part in it.
func (r *CodecRegistry) RegisterDefault(f *Format) {
	r.Register(f)
	r.fallback = f
}

// Default returns the fallback format, or nil if none was designated.
func (r *CodecRegistry) Default() *Format { return r.fallback }

// Detect returns the formats whose codecs claim to recognize data, in
// registration order. When nothing matches, it returns just the fallback
// format. Empty input yields no candidates without consulting any codec.
func (r *CodecRegistry) Detect(data []byte) []*Format {
	if len(data) == 0 {
		return nil
	}

	var matched []*Format
	for _, f := range r.formats {
		if r.verify(f, data) {
			matched = append(matched, f)
		}
	}

	if len(matched) == 0 {
		if r.fallback == nil {
			return nil
		}
		return []*Format{r.fallback}
	}
	return matched
}

// verify runs a codec's Verify, converting panics into a non-match.
func (r *CodecRegistry) verify(f *Format, data []byte) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debugf("codec %s panicked in Verify, treating as non-match: %v", f.Codec.Name(), rec)
			ok = false
		}
	}()
	return f.Codec.Verify(data)
}
