// Package fabric defines the topology and mastership contract the routing
// handler consumes (spec term: FabricView) and ships two implementations:
// an in-memory store for tests and simulation, and a Redis-backed view that
// layers a distributed mastership lock on top of it.
package fabric

import (
	"context"
	"fmt"
)

// DeviceID identifies a switch in the fabric. Equality and hashing are
// plain string comparison — FabricView owns no richer identity scheme.
type DeviceID string

// PortID identifies a port on a device.
type PortID string

// Endpoint is one side of a Link.
type Endpoint struct {
	Device DeviceID
	Port   PortID
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s/%s", e.Device, e.Port)
}

// Link is a bidirectional connection between two device ports. EcmpSpg
// construction treats every Link as traversable in both directions.
type Link struct {
	Src Endpoint
	Dst Endpoint
}

func (l Link) String() string {
	return fmt.Sprintf("%s-%s", l.Src, l.Dst)
}

// Reverse returns the link with endpoints swapped.
func (l Link) Reverse() Link {
	return Link{Src: l.Dst, Dst: l.Src}
}

// ConnectsDevices reports whether the link runs directly between a and b,
// regardless of direction.
func (l Link) ConnectsDevices(a, b DeviceID) bool {
	return (l.Src.Device == a && l.Dst.Device == b) ||
		(l.Src.Device == b && l.Dst.Device == a)
}

// Device is a fabric switch as FabricView enumerates it.
type Device struct {
	ID DeviceID
}

// View is the FabricView contract: a live read of devices, their links, and
// which controller instance is the local master for each device. Consumers
// never mutate through this interface — topology and mastership changes
// arrive as events from whatever backs the implementation.
type View interface {
	// Devices enumerates every device currently visible to the fabric.
	Devices(ctx context.Context) ([]Device, error)

	// LinksOf enumerates the links incident on id, in either direction.
	LinksOf(ctx context.Context, id DeviceID) ([]Link, error)

	// IsLocalMaster reports whether this controller instance is permitted
	// to program id. EcmpSpg construction does not consult this — only
	// the Orchestrator's device-selection loops do.
	IsLocalMaster(ctx context.Context, id DeviceID) (bool, error)
}
