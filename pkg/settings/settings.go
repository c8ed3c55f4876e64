// Package settings manages persistent user settings for the srctl CLI.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds persistent user preferences
type Settings struct {
	// RedisAddr is the address of the shared Redis instance backing
	// mastership and rule storage, used when -redis is not specified.
	RedisAddr string `json:"redis_addr,omitempty"`

	// FabricConfig overrides the default fabric.yaml path for DeviceConfig.
	FabricConfig string `json:"fabric_config,omitempty"`

	// TopologyFile overrides the default topology.yaml path for the
	// simulated FabricView used by commands that have no live SDN backend.
	TopologyFile string `json:"topology_file,omitempty"`

	// DefaultRoot is the device used when --root is not specified for
	// commands that operate on a single EcmpSpg (e.g. topology show).
	DefaultRoot string `json:"default_root,omitempty"`

	// InstanceID identifies this controller instance in mastership
	// campaigns when -instance is not specified.
	InstanceID string `json:"instance_id,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "srctl_settings.json"
	}
	return filepath.Join(home, ".srctl", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SetRedisAddr sets the default Redis address.
func (s *Settings) SetRedisAddr(addr string) {
	s.RedisAddr = addr
}

// SetFabricConfig sets the fabric.yaml path.
func (s *Settings) SetFabricConfig(path string) {
	s.FabricConfig = path
}

// GetFabricConfig returns the fabric config path, with fallback.
func (s *Settings) GetFabricConfig() string {
	if s.FabricConfig != "" {
		return s.FabricConfig
	}
	return "/etc/srctl/fabric.yaml"
}

// SetTopologyFile sets the topology.yaml path.
func (s *Settings) SetTopologyFile(path string) {
	s.TopologyFile = path
}

// GetTopologyFile returns the topology file path, with fallback.
func (s *Settings) GetTopologyFile() string {
	if s.TopologyFile != "" {
		return s.TopologyFile
	}
	return "/etc/srctl/topology.yaml"
}

// SetDefaultRoot sets the default root device for single-graph commands.
func (s *Settings) SetDefaultRoot(device string) {
	s.DefaultRoot = device
}

// SetInstanceID sets this controller instance's mastership identity.
func (s *Settings) SetInstanceID(id string) {
	s.InstanceID = id
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
