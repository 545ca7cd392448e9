package wire

import (
	"errors"
	"fmt"
)

// Message is a decoded protocol message. Implementations are the payload
// structs in this package; the byte layout of each is fixed by the station.
type Message interface {
	Kind() Kind
	encode(e *encoder)
	decode(d *decoder)
}

// Decode errors.
var (
	// ErrPayloadTooShort indicates a payload below the minimum size for its kind.
	ErrPayloadTooShort = errors.New("payload too short")
)

// DecodeError reports a payload that could not be decoded for a known kind.
type DecodeError struct {
	Kind Kind
	Size int
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s (%d bytes): %v", e.Kind, e.Size, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// minSizer is implemented by messages that cannot be decoded from fewer bytes.
type minSizer interface {
	minSize() int
}

// Unknown carries a message whose kind has no payload type.
type Unknown struct {
	ID  Kind
	Raw []byte
}

func (m *Unknown) Kind() Kind { return m.ID }

func (m *Unknown) encode(e *encoder) { e.buf = append(e.buf, m.Raw...) }

func (m *Unknown) decode(d *decoder) {
	m.Raw = d.raw(d.remaining())
}

// empty provides the no-op codec for messages without a payload.
type empty struct{}

func (empty) encode(*encoder) {}

func (*empty) decode(*decoder) {}

var factories = map[Kind]func() Message{
	KindKeepAlive:                 func() Message { return &KeepAlive{} },
	KindRegister:                  func() Message { return &Register{} },
	KindIpPort:                    func() Message { return &IpPort{} },
	KindKeypadButton:              func() Message { return &KeypadButton{} },
	KindEnblocCall:                func() Message { return &EnblocCall{} },
	KindStimulus:                  func() Message { return &StimulusMsg{} },
	KindOffHook:                   func() Message { return &OffHook{} },
	KindOnHook:                    func() Message { return &OnHook{} },
	KindHookFlash:                 func() Message { return &HookFlash{} },
	KindForwardStatReq:            func() Message { return &ForwardStatReq{} },
	KindSpeedDialStatReq:          func() Message { return &SpeedDialStatReq{} },
	KindLineStatReq:               func() Message { return &LineStatReq{} },
	KindConfigStatReq:             func() Message { return &ConfigStatReq{} },
	KindTimeDateReq:               func() Message { return &TimeDateReq{} },
	KindButtonTemplateReq:         func() Message { return &ButtonTemplateReq{} },
	KindVersionReq:                func() Message { return &VersionReq{} },
	KindCapabilitiesRes:           func() Message { return &CapabilitiesRes{} },
	KindServerReq:                 func() Message { return &ServerReq{} },
	KindAlarm:                     func() Message { return &Alarm{} },
	KindOpenReceiveChannelAck:     func() Message { return &OpenReceiveChannelAck{} },
	KindConnectionStatisticsRes:   func() Message { return &ConnectionStatisticsRes{} },
	KindOffHookWithCgpn:           func() Message { return &OffHookWithCgpn{} },
	KindSoftKeySetReq:             func() Message { return &SoftKeySetReq{} },
	KindSoftKeyEvent:              func() Message { return &SoftKeyEvent{} },
	KindUnregister:                func() Message { return &Unregister{} },
	KindSoftKeyTemplateReq:        func() Message { return &SoftKeyTemplateReq{} },
	KindRegisterTokenReq:          func() Message { return &RegisterTokenReq{} },
	KindHeadsetStatus:             func() Message { return &HeadsetStatus{} },
	KindMediaResourceNotification: func() Message { return &MediaResourceNotification{} },
	KindRegisterAvailableLines:    func() Message { return &RegisterAvailableLines{} },
	KindServiceURLStatReq:         func() Message { return &ServiceURLStatReq{} },
	KindFeatureStatReq:            func() Message { return &FeatureStatReq{} },
	KindRegisterAck:               func() Message { return &RegisterAck{} },
	KindStartTone:                 func() Message { return &StartTone{} },
	KindStopTone:                  func() Message { return &StopTone{} },
	KindSetRinger:                 func() Message { return &SetRinger{} },
	KindSetLamp:                   func() Message { return &SetLamp{} },
	KindSetSpeakerMode:            func() Message { return &SetSpeakerMode{} },
	KindStartMediaTransmission:    func() Message { return &StartMediaTransmission{} },
	KindStopMediaTransmission:     func() Message { return &StopMediaTransmission{} },
	KindCallInfo:                  func() Message { return &CallInfo{} },
	KindForwardStat:               func() Message { return &ForwardStat{} },
	KindSpeedDialStat:             func() Message { return &SpeedDialStat{} },
	KindLineStat:                  func() Message { return &LineStat{} },
	KindConfigStat:                func() Message { return &ConfigStat{} },
	KindDefineTimeDate:            func() Message { return &DefineTimeDate{} },
	KindButtonTemplate:            func() Message { return &ButtonTemplate{} },
	KindVersion:                   func() Message { return &Version{} },
	KindDisplayText:               func() Message { return &DisplayText{} },
	KindClearDisplay:              func() Message { return &ClearDisplay{} },
	KindCapabilitiesReq:           func() Message { return &CapabilitiesReq{} },
	KindRegisterReject:            func() Message { return &RegisterReject{} },
	KindServerRes:                 func() Message { return &ServerRes{} },
	KindReset:                     func() Message { return &Reset{} },
	KindKeepAliveAck:              func() Message { return &KeepAliveAck{} },
	KindOpenReceiveChannel:        func() Message { return &OpenReceiveChannel{} },
	KindCloseReceiveChannel:       func() Message { return &CloseReceiveChannel{} },
	KindConnectionStatisticsReq:   func() Message { return &ConnectionStatisticsReq{} },
	KindSoftKeyTemplateRes:        func() Message { return &SoftKeyTemplateRes{} },
	KindSoftKeySetRes:             func() Message { return &SoftKeySetRes{} },
	KindSelectSoftKeys:            func() Message { return &SelectSoftKeys{} },
	KindCallState:                 func() Message { return &CallStateMsg{} },
	KindDisplayPromptStatus:       func() Message { return &DisplayPromptStatus{} },
	KindClearPromptStatus:         func() Message { return &ClearPromptStatus{} },
	KindDisplayNotify:             func() Message { return &DisplayNotify{} },
	KindClearNotify:               func() Message { return &ClearNotify{} },
	KindActivateCallPlane:         func() Message { return &ActivateCallPlane{} },
	KindDeactivateCallPlane:       func() Message { return &DeactivateCallPlane{} },
	KindUnregisterAck:             func() Message { return &UnregisterAck{} },
	KindBackSpaceReq:              func() Message { return &BackSpaceReq{} },
	KindRegisterTokenAck:          func() Message { return &RegisterTokenAck{} },
	KindRegisterTokenReject:       func() Message { return &RegisterTokenReject{} },
	KindDialedNumber:              func() Message { return &DialedNumber{} },
	KindFeatureStat:               func() Message { return &FeatureStat{} },
	KindServiceURLStat:            func() Message { return &ServiceURLStat{} },
	KindCallSelectStat:            func() Message { return &CallSelectStat{} },
}

// Marshal encodes the payload of m, without framing.
func Marshal(m Message) []byte {
	e := &encoder{}
	m.encode(e)
	return e.buf
}

// New returns an empty message of the given kind.
func New(kind Kind) (Message, bool) {
	factory, ok := factories[kind]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// Unmarshal decodes a payload of the given kind. Kinds without a payload
// type decode to *Unknown without error.
func Unmarshal(kind Kind, payload []byte) (Message, error) {
	factory, ok := factories[kind]
	if !ok {
		m := &Unknown{ID: kind}
		m.decode(&decoder{buf: payload})
		return m, nil
	}
	m := factory()
	if ms, ok := m.(minSizer); ok && len(payload) < ms.minSize() {
		return nil, &DecodeError{Kind: kind, Size: len(payload), Err: ErrPayloadTooShort}
	}
	m.decode(&decoder{buf: payload})
	return m, nil
}
