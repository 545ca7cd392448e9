// Package scenario runs YAML-described phone conversations against a live
// gateway.
//
// A scenario declares the gateway configuration, the phones taking part and
// an ordered list of steps. Each step acts as one phone: it sends a
// message, waits for one, or checks that the gateway closed the session.
//
//	id: SC-CALL-001
//	name: Local call
//	config:
//	  lines: [{name: "100"}, {name: "200"}]
//	  devices:
//	    - {id: SEP0000000000A1, lines: [{line: "100"}]}
//	    - {id: SEP0000000000B2, lines: [{line: "200"}]}
//	phones:
//	  - {name: alice, device: SEP0000000000A1}
//	  - {name: bob, device: SEP0000000000B2}
//	steps:
//	  - {phone: alice, action: register}
//	  - {phone: bob, action: register}
//	  - {phone: alice, action: send, message: EnblocCall, fields: {number: "200"}}
//	  - {phone: bob, action: expect, message: CallState, fields: {state: RINGIN}}
package scenario

import (
	"gopkg.in/yaml.v3"
)

// Scenario is one conversation loaded from YAML.
type Scenario struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Timeout bounds the whole scenario (default 10s).
	Timeout string `yaml:"timeout,omitempty"`

	// Config is a gateway configuration file inlined. The bind address is
	// always replaced by a loopback port.
	Config yaml.Node `yaml:"config"`

	Phones []Phone `yaml:"phones"`
	Steps  []Step  `yaml:"steps"`

	Tags []string `yaml:"tags,omitempty"`
}

// Phone is a simulated station.
type Phone struct {
	Name   string `yaml:"name"`
	Device string `yaml:"device"`

	// Type is the reported device type (default 7960).
	Type uint32 `yaml:"type,omitempty"`

	// Protocol is the reported protocol version (default 11).
	Protocol uint8 `yaml:"protocol,omitempty"`
}

// Step actions.
const (
	ActionRegister     = "register"
	ActionSend         = "send"
	ActionExpect       = "expect"
	ActionExpectClosed = "expect_closed"
	ActionDial         = "dial"
	ActionSoftKey      = "softkey"
	ActionClose        = "close"
	ActionSleep        = "sleep"
)

// Step is a single action of one phone.
type Step struct {
	Phone  string `yaml:"phone"`
	Action string `yaml:"action"`

	// Message names the message kind for send and expect.
	Message string `yaml:"message,omitempty"`

	// Fields sets message fields for send, and the fields that must match
	// for expect. Keys are field names, case-insensitive. Values may be
	// numbers, strings, enum names such as CONNECTED, or $variables.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Save stores fields of the received message as variables, keyed by
	// variable name.
	Save map[string]string `yaml:"save,omitempty"`

	// Digits is dialed one key press at a time by dial.
	Digits string `yaml:"digits,omitempty"`

	// Key names the soft key pressed by softkey.
	Key string `yaml:"key,omitempty"`

	// Within overrides how long expect waits (default 2s). For sleep it is
	// the pause.
	Within string `yaml:"within,omitempty"`

	Description string `yaml:"description,omitempty"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index  int
	Step   *Step
	Passed bool
	Error  error
}

// Result is the outcome of a scenario.
type Result struct {
	Scenario *Scenario
	Passed   bool
	Steps    []StepResult
	Error    error
}
