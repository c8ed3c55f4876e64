// Package devconfig defines the per-device configuration contract (spec
// term: DeviceConfig) and a YAML-file-backed implementation.
package devconfig

import (
	"net/netip"

	"github.com/srfabric/srctl/pkg/srouting/fabric"
)

// Config is the DeviceConfig contract: per-device edge/transit flag, router
// loopback addresses, and configured subnets. Lookups fail with an error
// that wraps util.ErrConfigMissing when a device is unknown — Populator
// treats that as a recoverable, per-call failure rather than a panic.
type Config interface {
	// IsEdgeDevice reports whether id terminates subscriber subnets, as
	// opposed to being a pure transit switch.
	IsEdgeDevice(id fabric.DeviceID) (bool, error)

	// RouterIPv4 returns the device's segment-routing node-SID loopback
	// address. Every device must have one; its absence is an error.
	RouterIPv4(id fabric.DeviceID) (netip.Addr, error)

	// RouterIPv6 returns the device's IPv6 loopback, if configured. The
	// second return value is false when no IPv6 loopback is set — that is
	// not an error, just an absent optional.
	RouterIPv6(id fabric.DeviceID) (netip.Addr, bool, error)

	// SubnetsOf returns the subscriber subnets configured at id. Only
	// meaningful for edge devices; transit devices return an empty slice.
	SubnetsOf(id fabric.DeviceID) ([]netip.Prefix, error)
}
