package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader errors.
var (
	ErrNoID        = errors.New("scenario id is required")
	ErrNoSteps     = errors.New("scenario must have at least one step")
	ErrUnknownStep = errors.New("unknown step action")
	ErrNoPhone     = errors.New("step names an undeclared phone")
)

// LoadError reports a scenario file that could not be used.
type LoadError struct {
	File  string
	Step  int
	Cause error
}

func (e *LoadError) Error() string {
	prefix := e.File
	if prefix == "" {
		prefix = "scenario"
	}
	if e.Step > 0 {
		return fmt.Sprintf("%s: step %d: %v", prefix, e.Step, e.Cause)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Cause)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// Parse decodes and checks a scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, &LoadError{Cause: fmt.Errorf("failed to parse YAML: %w", err)}
	}
	if sc.ID == "" {
		return nil, &LoadError{Cause: ErrNoID}
	}
	if len(sc.Steps) == 0 {
		return nil, &LoadError{Cause: ErrNoSteps}
	}

	phones := make(map[string]bool, len(sc.Phones))
	for _, p := range sc.Phones {
		phones[p.Name] = true
	}
	for i, st := range sc.Steps {
		switch st.Action {
		case ActionSleep:
			continue
		case ActionRegister, ActionSend, ActionExpect, ActionExpectClosed, ActionDial, ActionSoftKey, ActionClose:
		default:
			return nil, &LoadError{Step: i + 1, Cause: fmt.Errorf("%w: %q", ErrUnknownStep, st.Action)}
		}
		if !phones[st.Phone] {
			return nil, &LoadError{Step: i + 1, Cause: fmt.Errorf("%w: %q", ErrNoPhone, st.Phone)}
		}
	}
	return &sc, nil
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Cause: err}
	}
	sc, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
		}
		return nil, err
	}
	return sc, nil
}

// LoadDirectory loads every .yaml and .yml file of dir, sorted by name.
func LoadDirectory(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{File: dir, Cause: err}
	}

	var out []*Scenario
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		sc, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}
