package feature

// Flags switch features on and off at runtime. A feature must be enabled
// here and in the device configuration to be usable.
type Flags struct {
	Transfer    bool `yaml:"transfer"`
	Park        bool `yaml:"park"`
	Pickup      bool `yaml:"pickup"`
	Conference  bool `yaml:"conference"`
	DND         bool `yaml:"dnd"`
	Private     bool `yaml:"private"`
	CallForward bool `yaml:"callforward"`
	MWI         bool `yaml:"mwi"`
	Barge       bool `yaml:"barge"`
}

// DefaultFlags enables every feature.
func DefaultFlags() Flags {
	return Flags{
		Transfer:    true,
		Park:        true,
		Pickup:      true,
		Conference:  true,
		DND:         true,
		Private:     true,
		CallForward: true,
		MWI:         true,
		Barge:       true,
	}
}
