// Package rulepop defines the rule-installation contract (spec term:
// RulePopulator) and a Redis-hash-backed implementation.
package rulepop

import (
	"net/netip"

	"github.com/srfabric/srctl/pkg/srouting/fabric"
)

// PortFilterInfo is the result of one round of filter installation at a
// device: how many ports were disabled, errored, or successfully filtered.
// A zero PortFilterInfo{} is the baseline RetryFilters compares its first
// live result against.
type PortFilterInfo struct {
	DisabledPorts int
	ErrorPorts    int
	FilteredPorts int
}

// Equal reports whether two results are identical, the comparison
// RetryFilters uses to detect stabilization across consecutive rounds.
func (p PortFilterInfo) Equal(other PortFilterInfo) bool {
	return p == other
}

// Populator is the RulePopulator contract: every call installs or revokes
// one kind of forwarding rule at a device, returning false on failure; the
// fire-and-forget punt and single-port filter calls report nothing. Implementations own translating
// these into whatever the underlying switch agent understands.
type Populator interface {
	// PopulateIPRuleForSubnet installs an IP rule at target forwarding
	// subnets toward dest via nextHops.
	PopulateIPRuleForSubnet(target fabric.DeviceID, subnets []netip.Prefix, dest fabric.DeviceID, nextHops []fabric.DeviceID) bool

	// PopulateIPRuleForRouter installs an IP rule at target forwarding
	// prefix (a router loopback /32 or /128) toward dest via nextHops.
	PopulateIPRuleForRouter(target fabric.DeviceID, prefix netip.Prefix, dest fabric.DeviceID, nextHops []fabric.DeviceID) bool

	// PopulateMPLSRule installs an MPLS segment-routing rule at target,
	// label-switching toward dest's routerIP via nextHops.
	PopulateMPLSRule(target, dest fabric.DeviceID, nextHops []fabric.DeviceID, routerIP netip.Addr) bool

	// RevokeIPRuleForSubnet removes any IP rule matching subnets, fabric-wide.
	RevokeIPRuleForSubnet(subnets []netip.Prefix) bool

	// PopulateRouterIPPunts installs punt rules for id's own router IPs.
	PopulateRouterIPPunts(id fabric.DeviceID)

	// PopulateArpNdpPunts installs punt rules for ARP and NDP traffic at id.
	PopulateArpNdpPunts(id fabric.DeviceID)

	// PopulateRouterMacVlanFilters installs VLAN/MAC port filters at id and
	// reports the outcome. A nil PortFilterInfo means the device's ports
	// were not yet enumerable — RetryFilters treats that as "try again".
	PopulateRouterMacVlanFilters(id fabric.DeviceID) (*PortFilterInfo, bool)

	// PopulateSinglePortFilters installs filters for one newly-enabled port.
	PopulateSinglePortFilters(id fabric.DeviceID, port fabric.PortID)

	// RevokeSinglePortFilters removes filters for one disabled port.
	RevokeSinglePortFilters(id fabric.DeviceID, port fabric.PortID)

	// ResetCounter zeroes the advisory install counter.
	ResetCounter()

	// Counter reports the advisory count of install/revoke calls made since
	// the last ResetCounter. It is incremented concurrently with no
	// ordering guarantee relative to any single cycle — advisory only.
	Counter() int64
}
