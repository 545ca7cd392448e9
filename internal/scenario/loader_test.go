package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(`
id: SC-1
name: one
timeout: 5s
phones:
  - {name: alice, device: SEP0000000000A1, type: 8, protocol: 17}
steps:
  - {phone: alice, action: register}
  - {action: sleep, within: 10ms}
  - phone: alice
    action: expect
    message: CallState
    fields: {state: RINGIN}
    save: {ref: CallRef}
tags: [a]
`))
	require.NoError(t, err)
	assert.Equal(t, "SC-1", sc.ID)
	assert.Equal(t, "5s", sc.Timeout)
	require.Len(t, sc.Phones, 1)
	assert.Equal(t, uint32(8), sc.Phones[0].Type)
	assert.Equal(t, uint8(17), sc.Phones[0].Protocol)
	require.Len(t, sc.Steps, 3)
	assert.Equal(t, ActionExpect, sc.Steps[2].Action)
	assert.Equal(t, "RINGIN", sc.Steps[2].Fields["state"])
	assert.Equal(t, "CallRef", sc.Steps[2].Save["ref"])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
		step int
	}{
		{"no id", "steps: [{action: sleep}]", ErrNoID, 0},
		{"no steps", "id: x", ErrNoSteps, 0},
		{"unknown action", "id: x\nsteps: [{action: sleep}, {action: juggle}]", ErrUnknownStep, 2},
		{"undeclared phone", "id: x\nsteps: [{phone: bob, action: register}]", ErrNoPhone, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.ErrorIs(t, err, tt.want)
			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.step, le.Step)
		})
	}

	_, err := Parse([]byte("id: [unclosed"))
	var le *LoadError
	assert.ErrorAs(t, err, &le)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("b.yaml", "id: B\nsteps: [{action: sleep}]\n")
	write("a.yml", "id: A\nsteps: [{action: sleep}]\n")
	write("notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	scs, err := LoadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, scs, 2)
	assert.Equal(t, "A", scs[0].ID)
	assert.Equal(t, "B", scs[1].ID)

	write("c.yaml", "name: no id\nsteps: [{action: sleep}]\n")
	_, err = LoadDirectory(dir)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, filepath.Join(dir, "c.yaml"), le.File)

	_, err = LoadDirectory(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
