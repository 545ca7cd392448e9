package station

// Prompts shown in the call plane.
const (
	PromptEnterNumber   = "Enter number"
	PromptRingOut       = "Ring Out"
	PromptConnected     = "Connected"
	PromptBusy          = "Busy"
	PromptTempFail      = "Temp Fail"
	PromptProceed       = "Call Proceed"
	PromptHold          = "Hold"
	PromptCallWaiting   = "Call Waiting"
	PromptTransfer      = "Transfer"
	PromptUnknownNumber = "Unknown Number"
	PromptPrivate       = "Private"
	PromptCallPark      = "Call Park"
	PromptOffHook       = "Off Hook"
)

// Notifications shown for feature outcomes.
const (
	NotifyNoRedial       = "No number to redial"
	NotifyNoCallToHold   = "No call to put on hold."
	NotifyTransferOff    = "Transfer disabled"
	NotifyDNDInactive    = "DND Service is not active"
	NotifyNotSupported   = "Not supported"
	NotifyNoLine         = "No line available"
	NotifyNoActiveCall   = "No active call"
	NotifyLineLimit      = "Max calls reached"
	NotifyFeatureOff     = "Feature is not active"
	NotifySelectTwo      = "Select two calls"
	NotifyNoVoicemail    = "No voicemail number"
	NotifyPrivateOff     = "Private disabled"
	NotifyNoPickupGroup  = "No pickup group"
	NotifyDND            = "DND"
	NotifyDNDReject      = "DND (Reject)"
	NotifyDNDSilent      = "DND (Silent)"
	NotifyForwardCleared = "Forward cleared"
	NotifyForwardedTo    = "Forwarded to "
	NotifyHoldFailed     = "Cannot hold call"
	NotifyCallNotFound   = "Call not found"
	NotifyUnknownDevice  = "Unknown Device"
	NotifyAccessDenied   = "Device not allowed"
	NotifyRejectedToken  = "Token rejected"
)

// NotifyTimeout is the display time of feature notifications in seconds.
const NotifyTimeout = 5
