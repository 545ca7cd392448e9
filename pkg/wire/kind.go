package wire

import (
	"fmt"
	"strings"
)

// Kind is the numeric message identifier carried after the length prefix.
type Kind uint32

// Station to server messages.
const (
	KindKeepAlive                 Kind = 0x0000
	KindRegister                  Kind = 0x0001
	KindIpPort                    Kind = 0x0002
	KindKeypadButton              Kind = 0x0003
	KindEnblocCall                Kind = 0x0004
	KindStimulus                  Kind = 0x0005
	KindOffHook                   Kind = 0x0006
	KindOnHook                    Kind = 0x0007
	KindHookFlash                 Kind = 0x0008
	KindForwardStatReq            Kind = 0x0009
	KindSpeedDialStatReq          Kind = 0x000A
	KindLineStatReq               Kind = 0x000B
	KindConfigStatReq             Kind = 0x000C
	KindTimeDateReq               Kind = 0x000D
	KindButtonTemplateReq         Kind = 0x000E
	KindVersionReq                Kind = 0x000F
	KindCapabilitiesRes           Kind = 0x0010
	KindServerReq                 Kind = 0x0012
	KindAlarm                     Kind = 0x0020
	KindOpenReceiveChannelAck     Kind = 0x0022
	KindConnectionStatisticsRes   Kind = 0x0023
	KindOffHookWithCgpn           Kind = 0x0024
	KindSoftKeySetReq             Kind = 0x0025
	KindSoftKeyEvent              Kind = 0x0026
	KindUnregister                Kind = 0x0027
	KindSoftKeyTemplateReq        Kind = 0x0028
	KindRegisterTokenReq          Kind = 0x0029
	KindHeadsetStatus             Kind = 0x002B
	KindMediaResourceNotification Kind = 0x002C
	KindRegisterAvailableLines    Kind = 0x002D
	KindServiceURLStatReq         Kind = 0x0033
	KindFeatureStatReq            Kind = 0x0034
)

// Server to station messages.
const (
	KindRegisterAck             Kind = 0x0081
	KindStartTone               Kind = 0x0082
	KindStopTone                Kind = 0x0083
	KindSetRinger               Kind = 0x0085
	KindSetLamp                 Kind = 0x0086
	KindSetSpeakerMode          Kind = 0x0088
	KindStartMediaTransmission  Kind = 0x008A
	KindStopMediaTransmission   Kind = 0x008B
	KindCallInfo                Kind = 0x008F
	KindForwardStat             Kind = 0x0090
	KindSpeedDialStat           Kind = 0x0091
	KindLineStat                Kind = 0x0092
	KindConfigStat              Kind = 0x0093
	KindDefineTimeDate          Kind = 0x0094
	KindButtonTemplate          Kind = 0x0097
	KindVersion                 Kind = 0x0098
	KindDisplayText             Kind = 0x0099
	KindClearDisplay            Kind = 0x009A
	KindCapabilitiesReq         Kind = 0x009B
	KindRegisterReject          Kind = 0x009D
	KindServerRes               Kind = 0x009E
	KindReset                   Kind = 0x009F
	KindKeepAliveAck            Kind = 0x0100
	KindOpenReceiveChannel      Kind = 0x0105
	KindCloseReceiveChannel     Kind = 0x0106
	KindConnectionStatisticsReq Kind = 0x0107
	KindSoftKeyTemplateRes      Kind = 0x0108
	KindSoftKeySetRes           Kind = 0x0109
	KindSelectSoftKeys          Kind = 0x0110
	KindCallState               Kind = 0x0111
	KindDisplayPromptStatus     Kind = 0x0112
	KindClearPromptStatus       Kind = 0x0113
	KindDisplayNotify           Kind = 0x0114
	KindClearNotify             Kind = 0x0115
	KindActivateCallPlane       Kind = 0x0116
	KindDeactivateCallPlane     Kind = 0x0117
	KindUnregisterAck           Kind = 0x0118
	KindBackSpaceReq            Kind = 0x0119
	KindRegisterTokenAck        Kind = 0x011A
	KindRegisterTokenReject     Kind = 0x011B
	KindDialedNumber            Kind = 0x011D
	KindFeatureStat             Kind = 0x011F
	KindServiceURLStat          Kind = 0x012F
	KindCallSelectStat          Kind = 0x0130
)

var kindNames = map[Kind]string{
	KindKeepAlive:                 "KeepAlive",
	KindRegister:                  "Register",
	KindIpPort:                    "IpPort",
	KindKeypadButton:              "KeypadButton",
	KindEnblocCall:                "EnblocCall",
	KindStimulus:                  "Stimulus",
	KindOffHook:                   "OffHook",
	KindOnHook:                    "OnHook",
	KindHookFlash:                 "HookFlash",
	KindForwardStatReq:            "ForwardStatReq",
	KindSpeedDialStatReq:          "SpeedDialStatReq",
	KindLineStatReq:               "LineStatReq",
	KindConfigStatReq:             "ConfigStatReq",
	KindTimeDateReq:               "TimeDateReq",
	KindButtonTemplateReq:         "ButtonTemplateReq",
	KindVersionReq:                "VersionReq",
	KindCapabilitiesRes:           "CapabilitiesRes",
	KindServerReq:                 "ServerReq",
	KindAlarm:                     "Alarm",
	KindOpenReceiveChannelAck:     "OpenReceiveChannelAck",
	KindConnectionStatisticsRes:   "ConnectionStatisticsRes",
	KindOffHookWithCgpn:           "OffHookWithCgpn",
	KindSoftKeySetReq:             "SoftKeySetReq",
	KindSoftKeyEvent:              "SoftKeyEvent",
	KindUnregister:                "Unregister",
	KindSoftKeyTemplateReq:        "SoftKeyTemplateReq",
	KindRegisterTokenReq:          "RegisterTokenReq",
	KindHeadsetStatus:             "HeadsetStatus",
	KindMediaResourceNotification: "MediaResourceNotification",
	KindRegisterAvailableLines:    "RegisterAvailableLines",
	KindServiceURLStatReq:         "ServiceURLStatReq",
	KindFeatureStatReq:            "FeatureStatReq",
	KindRegisterAck:               "RegisterAck",
	KindStartTone:                 "StartTone",
	KindStopTone:                  "StopTone",
	KindSetRinger:                 "SetRinger",
	KindSetLamp:                   "SetLamp",
	KindSetSpeakerMode:            "SetSpeakerMode",
	KindStartMediaTransmission:    "StartMediaTransmission",
	KindStopMediaTransmission:     "StopMediaTransmission",
	KindCallInfo:                  "CallInfo",
	KindForwardStat:               "ForwardStat",
	KindSpeedDialStat:             "SpeedDialStat",
	KindLineStat:                  "LineStat",
	KindConfigStat:                "ConfigStat",
	KindDefineTimeDate:            "DefineTimeDate",
	KindButtonTemplate:            "ButtonTemplate",
	KindVersion:                   "Version",
	KindDisplayText:               "DisplayText",
	KindClearDisplay:              "ClearDisplay",
	KindCapabilitiesReq:           "CapabilitiesReq",
	KindRegisterReject:            "RegisterReject",
	KindServerRes:                 "ServerRes",
	KindReset:                     "Reset",
	KindKeepAliveAck:              "KeepAliveAck",
	KindOpenReceiveChannel:        "OpenReceiveChannel",
	KindCloseReceiveChannel:       "CloseReceiveChannel",
	KindConnectionStatisticsReq:   "ConnectionStatisticsReq",
	KindSoftKeyTemplateRes:        "SoftKeyTemplateRes",
	KindSoftKeySetRes:             "SoftKeySetRes",
	KindSelectSoftKeys:            "SelectSoftKeys",
	KindCallState:                 "CallState",
	KindDisplayPromptStatus:       "DisplayPromptStatus",
	KindClearPromptStatus:         "ClearPromptStatus",
	KindDisplayNotify:             "DisplayNotify",
	KindClearNotify:               "ClearNotify",
	KindActivateCallPlane:         "ActivateCallPlane",
	KindDeactivateCallPlane:       "DeactivateCallPlane",
	KindUnregisterAck:             "UnregisterAck",
	KindBackSpaceReq:              "BackSpaceReq",
	KindRegisterTokenAck:          "RegisterTokenAck",
	KindRegisterTokenReject:       "RegisterTokenReject",
	KindDialedNumber:              "DialedNumber",
	KindFeatureStat:               "FeatureStat",
	KindServiceURLStat:            "ServiceURLStat",
	KindCallSelectStat:            "CallSelectStat",
}

// String returns the message name, or the hex id for unknown kinds.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%04X)", uint32(k))
}

// ParseKind returns the kind with the given message name. Case is ignored.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, true
		}
	}
	return 0, false
}

// IsKnown reports whether the kind has a registered name.
func (k Kind) IsKnown() bool {
	_, ok := kindNames[k]
	return ok
}

// AllowedUnregistered reports whether a station may send this kind before it
// is bound to a device.
func (k Kind) AllowedUnregistered() bool {
	switch k {
	case KindRegister, KindUnregister, KindRegisterTokenReq, KindAlarm, KindKeepAlive, KindIpPort:
		return true
	default:
		return false
	}
}
