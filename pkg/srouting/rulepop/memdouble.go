package rulepop

import (
	"net/netip"
	"sync"

	"github.com/srfabric/srctl/pkg/srouting/fabric"
)

// IPRule is one recorded IP-subnet or router-IP rule installation.
type IPRule struct {
	Target   fabric.DeviceID
	Dest     fabric.DeviceID
	Prefixes []netip.Prefix
	NextHops []fabric.DeviceID
}

// MPLSRule is one recorded MPLS-SR rule installation.
type MPLSRule struct {
	Target, Dest fabric.DeviceID
	NextHops     []fabric.DeviceID
	RouterIP     netip.Addr
}

// MemPopulator is an in-memory Populator double for exercising the core
// algorithms (Populator, Orchestrator, RetryFilters) without Redis. It
// records every call it receives and can be told to fail specific ones.
type MemPopulator struct {
	mu sync.Mutex

	SubnetRules  []IPRule
	RouterRules  []IPRule
	MPLSRules    []MPLSRule
	RevokedSubs  [][]netip.Prefix
	RouterPunts  []fabric.DeviceID
	ArpNdpPunts  []fabric.DeviceID
	SinglePorts  []fabric.Endpoint
	RevokedPorts []fabric.Endpoint

	// FailSubnet, FailRouter, and FailMPLS force the corresponding install
	// call to fail exactly once for the matching target device, then clear
	// themselves — enough to simulate "first call fails, retry succeeds"
	// without hand-rolled state machines in every test.
	FailSubnet map[fabric.DeviceID]bool
	FailRouter map[fabric.DeviceID]bool
	FailMPLS   map[fabric.DeviceID]bool

	// FilterResults is consumed in order by PopulateRouterMacVlanFilters,
	// one result per call; once exhausted, the last entry repeats.
	FilterResults []PortFilterInfo
	filterCalls   int

	counter int64
}

// NewMemPopulator creates an empty double.
func NewMemPopulator() *MemPopulator {
	return &MemPopulator{
		FailSubnet: make(map[fabric.DeviceID]bool),
		FailRouter: make(map[fabric.DeviceID]bool),
		FailMPLS:   make(map[fabric.DeviceID]bool),
	}
}

func (m *MemPopulator) PopulateIPRuleForSubnet(target fabric.DeviceID, subnets []netip.Prefix, dest fabric.DeviceID, nextHops []fabric.DeviceID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSubnet[target] {
		delete(m.FailSubnet, target)
		return false
	}
	m.SubnetRules = append(m.SubnetRules, IPRule{Target: target, Dest: dest, Prefixes: subnets, NextHops: nextHops})
	m.counter++
	return true
}

func (m *MemPopulator) PopulateIPRuleForRouter(target fabric.DeviceID, prefix netip.Prefix, dest fabric.DeviceID, nextHops []fabric.DeviceID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRouter[target] {
		delete(m.FailRouter, target)
		return false
	}
	m.RouterRules = append(m.RouterRules, IPRule{Target: target, Dest: dest, Prefixes: []netip.Prefix{prefix}, NextHops: nextHops})
	m.counter++
	return true
}

func (m *MemPopulator) PopulateMPLSRule(target, dest fabric.DeviceID, nextHops []fabric.DeviceID, routerIP netip.Addr) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailMPLS[target] {
		delete(m.FailMPLS, target)
		return false
	}
	m.MPLSRules = append(m.MPLSRules, MPLSRule{Target: target, Dest: dest, NextHops: nextHops, RouterIP: routerIP})
	m.counter++
	return true
}

func (m *MemPopulator) RevokeIPRuleForSubnet(subnets []netip.Prefix) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RevokedSubs = append(m.RevokedSubs, subnets)
	m.counter++
	return true
}

func (m *MemPopulator) PopulateRouterIPPunts(id fabric.DeviceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RouterPunts = append(m.RouterPunts, id)
	m.counter++
}

func (m *MemPopulator) PopulateArpNdpPunts(id fabric.DeviceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArpNdpPunts = append(m.ArpNdpPunts, id)
	m.counter++
}

func (m *MemPopulator) PopulateRouterMacVlanFilters(id fabric.DeviceID) (*PortFilterInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	if len(m.FilterResults) == 0 {
		return &PortFilterInfo{}, true
	}
	idx := m.filterCalls
	if idx >= len(m.FilterResults) {
		idx = len(m.FilterResults) - 1
	}
	m.filterCalls++
	result := m.FilterResults[idx]
	return &result, true
}

func (m *MemPopulator) PopulateSinglePortFilters(id fabric.DeviceID, port fabric.PortID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SinglePorts = append(m.SinglePorts, fabric.Endpoint{Device: id, Port: port})
	m.counter++
}

func (m *MemPopulator) RevokeSinglePortFilters(id fabric.DeviceID, port fabric.PortID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RevokedPorts = append(m.RevokedPorts, fabric.Endpoint{Device: id, Port: port})
	m.counter++
}

func (m *MemPopulator) ResetCounter() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter = 0
}

func (m *MemPopulator) Counter() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counter
}

var _ Populator = (*MemPopulator)(nil)
