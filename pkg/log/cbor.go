package log

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// ErrNoRawPayload is returned when a traced message carries no wire bytes,
// as in traces written before Raw was recorded.
var ErrNoRawPayload = errors.New("trace message has no raw payload")

// Trace files are read back long after they were written, possibly by a
// newer sccp-log, so the decoder accepts what the encoder never produces.
var (
	traceEnc cbor.EncMode
	traceDec cbor.DecMode
)

func init() {
	var err error
	traceEnc, err = cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("sccp trace encoder: %v", err))
	}
	traceDec, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		MaxArrayElements:  wire.MaxFrameLength,
		MaxMapPairs:       wire.MaxFrameLength,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("sccp trace decoder: %v", err))
	}
}

// EncodeEvent encodes one trace event.
func EncodeEvent(event Event) ([]byte, error) {
	return traceEnc.Marshal(event)
}

// DecodeEvent decodes one trace event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := traceDec.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("decode trace event: %w", err)
	}
	return event, nil
}

// Decode rebuilds the station message from its wire payload. Kinds the
// gateway has no type for come back as *wire.Unknown.
func (m *MessageEvent) Decode() (wire.Message, error) {
	msg, err := wire.Unmarshal(m.Kind, m.Raw)
	if err != nil && len(m.Raw) == 0 {
		return nil, fmt.Errorf("%s: %w", m.Kind, ErrNoRawPayload)
	}
	return msg, err
}

func newTraceEncoder(w io.Writer) *cbor.Encoder { return traceEnc.NewEncoder(w) }

func newTraceDecoder(r io.Reader) *cbor.Decoder { return traceDec.NewDecoder(r) }
