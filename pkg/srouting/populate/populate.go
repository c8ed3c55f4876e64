// Package populate drives a RulePopulator for one root device and one
// EcmpSpg — the Populator of the routing handler's component design.
package populate

import (
	"net/netip"

	"github.com/srfabric/srctl/pkg/srouting/devconfig"
	"github.com/srfabric/srctl/pkg/srouting/fabric"
	"github.com/srfabric/srctl/pkg/srouting/rulepop"
	"github.com/srfabric/srctl/pkg/srouting/spg"
	"github.com/srfabric/srctl/pkg/util"
)

// Populator drives rule installation for EcmpSpg entries and port-level
// addressing, against a DeviceConfig and a RulePopulator.
type Populator struct {
	config devconfig.Config
	rules  rulepop.Populator
}

// New creates a Populator over config and rules.
func New(config devconfig.Config, rules rulepop.Populator) *Populator {
	return &Populator{config: config, rules: rules}
}

// PopulateEcmpRules installs every route in graph toward destSw, restricted
// to subnets when non-empty. It returns false on the first partial failure,
// leaving any later entries unattempted — no local retry, the caller's
// reprogram cycle owns that.
func (p *Populator) PopulateEcmpRules(destSw fabric.DeviceID, graph *spg.EcmpSpg, subnets []netip.Prefix) bool {
	for _, entry := range graph.Entries() {
		nextHops := firstHops(entry.Paths, destSw)
		if !p.PopulatePartial(entry.Target, destSw, nextHops, subnets) {
			return false
		}
	}
	return true
}

// firstHops computes the set of first hops on each ECMP via-path to target:
// the via-path's first intermediate, or destSw itself when the via-path is
// empty (a direct neighbor).
func firstHops(paths []spg.ViaPath, destSw fabric.DeviceID) []fabric.DeviceID {
	seen := make(map[fabric.DeviceID]bool, len(paths))
	var out []fabric.DeviceID
	for _, via := range paths {
		hop := destSw
		if len(via) > 0 {
			hop = via[0]
		}
		if !seen[hop] {
			seen[hop] = true
			out = append(out, hop)
		}
	}
	return out
}

// PopulatePartial installs every rule needed for one (targetSw, destSw) hop:
// subnet rules when both targetSw and destSw are edge devices, router-IP
// rules when targetSw is an edge device, and unconditionally an MPLS-SR rule. Any installation failure, or any DeviceConfig lookup
// failure, short-circuits with false.
func (p *Populator) PopulatePartial(targetSw, destSw fabric.DeviceID, nextHops []fabric.DeviceID, subnets []netip.Prefix) bool {
	targetIsEdge, err := p.config.IsEdgeDevice(targetSw)
	if err != nil {
		util.WithFields(map[string]interface{}{"target": targetSw, "error": err}).Warn("populatePartial: target config lookup failed")
		return false
	}
	destIsEdge, err := p.config.IsEdgeDevice(destSw)
	if err != nil {
		util.WithFields(map[string]interface{}{"dest": destSw, "error": err}).Warn("populatePartial: dest config lookup failed")
		return false
	}
	destRouterV4, err := p.config.RouterIPv4(destSw)
	if err != nil {
		util.WithFields(map[string]interface{}{"dest": destSw, "error": err}).Warn("populatePartial: dest router IPv4 lookup failed")
		return false
	}
	destRouterV6, hasV6, err := p.config.RouterIPv6(destSw)
	if err != nil {
		util.WithFields(map[string]interface{}{"dest": destSw, "error": err}).Warn("populatePartial: dest router IPv6 lookup failed")
		return false
	}

	if targetIsEdge && destIsEdge {
		scope := subnets
		if len(scope) == 0 {
			scope, err = p.config.SubnetsOf(destSw)
			if err != nil {
				util.WithFields(map[string]interface{}{"dest": destSw, "error": err}).Warn("populatePartial: dest subnets lookup failed")
				return false
			}
		}
		if len(scope) > 0 {
			if !p.rules.PopulateIPRuleForSubnet(targetSw, scope, destSw, nextHops) {
				return false
			}
		}
		if !p.rules.PopulateIPRuleForRouter(targetSw, netip.PrefixFrom(destRouterV4, destRouterV4.BitLen()), destSw, nextHops) {
			return false
		}
		if hasV6 {
			if !p.rules.PopulateIPRuleForRouter(targetSw, netip.PrefixFrom(destRouterV6, destRouterV6.BitLen()), destSw, nextHops) {
				return false
			}
		}
	} else if targetIsEdge {
		if !p.rules.PopulateIPRuleForRouter(targetSw, netip.PrefixFrom(destRouterV4, destRouterV4.BitLen()), destSw, nextHops) {
			return false
		}
		if hasV6 {
			if !p.rules.PopulateIPRuleForRouter(targetSw, netip.PrefixFrom(destRouterV6, destRouterV6.BitLen()), destSw, nextHops) {
				return false
			}
		}
	}

	if !p.rules.PopulateMPLSRule(targetSw, destSw, nextHops, destRouterV4) {
		return false
	}
	if hasV6 {
		if !p.rules.PopulateMPLSRule(targetSw, destSw, nextHops, destRouterV6) {
			return false
		}
	}

	return true
}

// PopulatePortAddressing installs router-IP and ARP/NDP punt rules at id,
// then primes the port-filter baseline: if the first
// PopulateRouterMacVlanFilters call reports nothing installed, the caller
// (Orchestrator) starts a RetryFilters loop from that zero baseline.
func (p *Populator) PopulatePortAddressing(id fabric.DeviceID) (*rulepop.PortFilterInfo, bool) {
	p.rules.PopulateRouterIPPunts(id)
	p.rules.PopulateArpNdpPunts(id)

	info, ok := p.rules.PopulateRouterMacVlanFilters(id)
	if !ok {
		return nil, false
	}
	if info == nil {
		info = &rulepop.PortFilterInfo{}
	}
	return info, true
}
