package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4

	// KindSize is the size of the message kind field in bytes.
	KindSize = 4

	// ReservedSize is the size of the header version word used by FramingHeaderVersion.
	ReservedSize = 4

	// DefaultMaxMessageSize is the largest payload kept from a frame (bytes).
	// Longer payloads are truncated.
	DefaultMaxMessageSize = 2000

	// MaxFrameLength is the largest length prefix accepted before the stream
	// is considered desynchronized.
	MaxFrameLength = 64 * 1024
)

// Framing errors.
var (
	// ErrFrameTooShort indicates a length prefix smaller than the kind field.
	ErrFrameTooShort = errors.New("frame too short")

	// ErrFrameTooLarge indicates a length prefix above MaxFrameLength.
	ErrFrameTooLarge = errors.New("frame too large")
)

// Framing selects the header layout.
type Framing uint8

const (
	// FramingPlain is len | kind | payload, len covering kind and payload.
	FramingPlain Framing = iota

	// FramingHeaderVersion is len | reserved | kind | payload, len covering
	// kind and payload only. Deployed stations use this layout.
	FramingHeaderVersion
)

// String returns the framing name.
func (f Framing) String() string {
	switch f {
	case FramingPlain:
		return "plain"
	case FramingHeaderVersion:
		return "header-version"
	default:
		return "unknown"
	}
}

// ParseFraming parses a framing name as returned by String.
func ParseFraming(s string) (Framing, error) {
	switch s {
	case "", "plain":
		return FramingPlain, nil
	case "header-version":
		return FramingHeaderVersion, nil
	default:
		return 0, fmt.Errorf("unknown framing %q", s)
	}
}

// Frame is one complete frame cut from a byte stream.
type Frame struct {
	Kind    Kind
	Payload []byte

	// Size is the number of stream bytes the frame occupied.
	Size int

	// Truncated is set when the payload was cut to the maximum message size.
	Truncated bool

	// Err is set for frames that could not carry a message.
	Err error
}

// Codec converts between messages and framed bytes.
type Codec struct {
	Framing        Framing
	MaxMessageSize int
}

// DefaultCodec uses plain framing and the default maximum message size.
var DefaultCodec = Codec{Framing: FramingPlain, MaxMessageSize: DefaultMaxMessageSize}

func (c Codec) headerSize() int {
	if c.Framing == FramingHeaderVersion {
		return LengthPrefixSize + ReservedSize + KindSize
	}
	return LengthPrefixSize + KindSize
}

func (c Codec) maxMessageSize() int {
	if c.MaxMessageSize <= 0 {
		return DefaultMaxMessageSize
	}
	return c.MaxMessageSize
}

// Encode frames a message.
func (c Codec) Encode(m Message) []byte {
	payload := Marshal(m)
	buf := make([]byte, 0, c.headerSize()+len(payload))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(KindSize+len(payload)))
	if c.Framing == FramingHeaderVersion {
		buf = binary.LittleEndian.AppendUint32(buf, 0)
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.Kind()))
	return append(buf, payload...)
}

// Split cuts all complete frames from buf and returns them together with the
// number of bytes consumed. Incomplete trailing bytes are left for the next
// call. ErrFrameTooLarge is returned when the stream cannot be resynchronized;
// frames cut before that point are still returned.
func (c Codec) Split(buf []byte) ([]Frame, int, error) {
	var frames []Frame
	off := 0
	extra := 0
	if c.Framing == FramingHeaderVersion {
		extra = ReservedSize
	}
	for {
		rest := buf[off:]
		if len(rest) < LengthPrefixSize {
			return frames, off, nil
		}
		n := binary.LittleEndian.Uint32(rest)
		if n > MaxFrameLength {
			return frames, off, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, MaxFrameLength)
		}
		total := LengthPrefixSize + extra + int(n)
		if len(rest) < total {
			return frames, off, nil
		}
		off += total
		if n < KindSize {
			frames = append(frames, Frame{Size: total, Err: fmt.Errorf("%w: length %d", ErrFrameTooShort, n)})
			continue
		}
		kindOff := LengthPrefixSize + extra
		f := Frame{
			Kind: Kind(binary.LittleEndian.Uint32(rest[kindOff:])),
			Size: total,
		}
		payload := rest[kindOff+KindSize : total]
		if limit := c.maxMessageSize(); len(payload) > limit {
			payload = payload[:limit]
			f.Truncated = true
		}
		f.Payload = append([]byte(nil), payload...)
		frames = append(frames, f)
	}
}

// Decode turns a frame into a message.
func (c Codec) Decode(f Frame) (Message, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return Unmarshal(f.Kind, f.Payload)
}

// DecodeAll splits buf and decodes every complete frame. Frames that fail to
// decode are skipped and their errors collected.
func (c Codec) DecodeAll(buf []byte) ([]Message, int, []error) {
	frames, consumed, err := c.Split(buf)
	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	msgs := make([]Message, 0, len(frames))
	for _, f := range frames {
		m, derr := c.Decode(f)
		if derr != nil {
			errs = append(errs, derr)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, consumed, errs
}
