package devices

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFleetConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFleet(t *testing.T) {
	path := writeFleetConfig(t, `
devices:
  - name: phone-api34
    type: emulator-pixel6
    runtime: android-34
  - name: tablet-api33
    type: emulator-tab
    runtime: android-33
`)
	specs, err := LoadFleet(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "phone-api34", specs[0].Name)
	assert.Equal(t, "android-33", specs[1].Runtime)
}

func TestLoadFleetRejectsDuplicateNames(t *testing.T) {
	path := writeFleetConfig(t, `
devices:
  - name: phone
    type: a
    runtime: r1
  - name: phone
    type: b
    runtime: r2
`)
	_, err := LoadFleet(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate device name")
}

func TestLoadFleetRejectsEmptyFleet(t *testing.T) {
	path := writeFleetConfig(t, "devices: []\n")
	_, err := LoadFleet(path)
	assert.Error(t, err)
}

func TestLoadFleetRejectsIncompleteSpec(t *testing.T) {
	path := writeFleetConfig(t, `
devices:
  - name: phone
    type: a
`)
	_, err := LoadFleet(path)
	assert.Error(t, err)
}

func TestLoadFleetMissingFile(t *testing.T) {
	_, err := LoadFleet(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
