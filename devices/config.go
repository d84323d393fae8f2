package devices

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fleetci/device-harness/types"
)

// FleetConfig is the YAML document describing the fixed set of devices a
// run executes against.
type FleetConfig struct {
	Devices []types.DeviceSpec `yaml:"devices"`
}

// LoadFleet reads and validates the fleet configuration file. Device names
// must be unique within a run: they key artifact paths and instance reset.
func LoadFleet(path string) ([]types.DeviceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading fleet config %s", path)
	}

	var cfg FleetConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing fleet config %s", path)
	}
	if len(cfg.Devices) == 0 {
		return nil, errors.Errorf("fleet config %s declares no devices", path)
	}

	seen := make(map[string]bool, len(cfg.Devices))
	for _, spec := range cfg.Devices {
		if err := spec.Validate(); err != nil {
			return nil, errors.Wrapf(err, "fleet config %s", path)
		}
		if seen[spec.Name] {
			return nil, errors.Errorf("fleet config %s: duplicate device name %q", path, spec.Name)
		}
		seen[spec.Name] = true
	}
	return cfg.Devices, nil
}
