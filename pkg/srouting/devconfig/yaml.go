package devconfig

import (
	"fmt"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/srfabric/srctl/pkg/srouting/fabric"
	"github.com/srfabric/srctl/pkg/util"
)

// deviceEntry is the on-disk shape of one device's configuration: edge
// flag, router IPs, and the subnets it originates.
type deviceEntry struct {
	Edge       bool     `yaml:"edge"`
	RouterIPv4 string   `yaml:"router_ipv4"`
	RouterIPv6 string   `yaml:"router_ipv6,omitempty"`
	Subnets    []string `yaml:"subnets,omitempty"`
}

// fabricFile is the top-level fabric.yaml document.
type fabricFile struct {
	Devices map[string]deviceEntry `yaml:"devices"`
}

// YAMLConfig is a DeviceConfig backed by a static fabric.yaml file, loaded
// once at construction time. Re-provisioning requires reloading.
type YAMLConfig struct {
	devices map[fabric.DeviceID]resolvedDevice
}

type resolvedDevice struct {
	edge       bool
	routerIPv4 netip.Addr
	routerIPv6 netip.Addr
	hasIPv6    bool
	subnets    []netip.Prefix
}

// LoadYAML reads and parses a fabric.yaml configuration file.
func LoadYAML(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fabric config %s: %w", path, err)
	}

	var doc fabricFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing fabric config %s: %w", path, err)
	}

	devices := make(map[fabric.DeviceID]resolvedDevice, len(doc.Devices))
	for name, entry := range doc.Devices {
		resolved, err := resolveDeviceEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", name, err)
		}
		devices[fabric.DeviceID(name)] = resolved
	}

	return &YAMLConfig{devices: devices}, nil
}

func resolveDeviceEntry(entry deviceEntry) (resolvedDevice, error) {
	var resolved resolvedDevice
	resolved.edge = entry.Edge

	if entry.RouterIPv4 != "" {
		addr, err := netip.ParseAddr(entry.RouterIPv4)
		if err != nil {
			return resolved, fmt.Errorf("invalid router_ipv4 %q: %w", entry.RouterIPv4, err)
		}
		resolved.routerIPv4 = addr
	}

	if entry.RouterIPv6 != "" {
		addr, err := netip.ParseAddr(entry.RouterIPv6)
		if err != nil {
			return resolved, fmt.Errorf("invalid router_ipv6 %q: %w", entry.RouterIPv6, err)
		}
		resolved.routerIPv6 = addr
		resolved.hasIPv6 = true
	}

	for _, s := range entry.Subnets {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return resolved, fmt.Errorf("invalid subnet %q: %w", s, err)
		}
		resolved.subnets = append(resolved.subnets, prefix)
	}

	return resolved, nil
}

// IsEdgeDevice implements Config.
func (c *YAMLConfig) IsEdgeDevice(id fabric.DeviceID) (bool, error) {
	d, ok := c.devices[id]
	if !ok {
		return false, util.NewConfigMissingError(string(id), "edge")
	}
	return d.edge, nil
}

// RouterIPv4 implements Config.
func (c *YAMLConfig) RouterIPv4(id fabric.DeviceID) (netip.Addr, error) {
	d, ok := c.devices[id]
	if !ok || !d.routerIPv4.IsValid() {
		return netip.Addr{}, util.NewConfigMissingError(string(id), "routerIpv4")
	}
	return d.routerIPv4, nil
}

// RouterIPv6 implements Config.
func (c *YAMLConfig) RouterIPv6(id fabric.DeviceID) (netip.Addr, bool, error) {
	d, ok := c.devices[id]
	if !ok {
		return netip.Addr{}, false, util.NewConfigMissingError(string(id), "routerIpv6")
	}
	return d.routerIPv6, d.hasIPv6, nil
}

// SubnetsOf implements Config.
func (c *YAMLConfig) SubnetsOf(id fabric.DeviceID) ([]netip.Prefix, error) {
	d, ok := c.devices[id]
	if !ok {
		return nil, util.NewConfigMissingError(string(id), "subnets")
	}
	out := make([]netip.Prefix, len(d.subnets))
	copy(out, d.subnets)
	return out, nil
}
