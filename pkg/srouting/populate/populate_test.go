package populate

import (
	"context"
	"net/netip"
	"testing"

	"github.com/srfabric/srctl/pkg/srouting/fabric"
	"github.com/srfabric/srctl/pkg/srouting/rulepop"
	"github.com/srfabric/srctl/pkg/srouting/spg"
)

// fakeConfig is a minimal in-memory devconfig.Config double.
type fakeConfig struct {
	edge    map[fabric.DeviceID]bool
	v4      map[fabric.DeviceID]netip.Addr
	v6      map[fabric.DeviceID]netip.Addr
	subnets map[fabric.DeviceID][]netip.Prefix
}

func newFakeConfig() *fakeConfig {
	return &fakeConfig{
		edge:    make(map[fabric.DeviceID]bool),
		v4:      make(map[fabric.DeviceID]netip.Addr),
		v6:      make(map[fabric.DeviceID]netip.Addr),
		subnets: make(map[fabric.DeviceID][]netip.Prefix),
	}
}

func (c *fakeConfig) IsEdgeDevice(id fabric.DeviceID) (bool, error) {
	return c.edge[id], nil
}

func (c *fakeConfig) RouterIPv4(id fabric.DeviceID) (netip.Addr, error) {
	return c.v4[id], nil
}

func (c *fakeConfig) RouterIPv6(id fabric.DeviceID) (netip.Addr, bool, error) {
	v6, ok := c.v6[id]
	return v6, ok, nil
}

func (c *fakeConfig) SubnetsOf(id fabric.DeviceID) ([]netip.Prefix, error) {
	return c.subnets[id], nil
}

func link(a, b fabric.DeviceID) fabric.Link {
	return fabric.Link{
		Src: fabric.Endpoint{Device: a, Port: "1"},
		Dst: fabric.Endpoint{Device: b, Port: "1"},
	}
}

func setupLineConfig() (*fabric.MemView, *fakeConfig) {
	view := fabric.NewMemView()
	for _, id := range []fabric.DeviceID{"leaf1", "spine1", "leaf2"} {
		view.AddDevice(id)
	}
	view.AddLink(link("leaf1", "spine1"))
	view.AddLink(link("spine1", "leaf2"))

	cfg := newFakeConfig()
	cfg.edge["leaf1"] = true
	cfg.edge["leaf2"] = true
	cfg.edge["spine1"] = false
	cfg.v4["leaf1"] = netip.MustParseAddr("10.0.0.1")
	cfg.v4["leaf2"] = netip.MustParseAddr("10.0.0.2")
	cfg.v4["spine1"] = netip.MustParseAddr("10.0.0.254")
	cfg.subnets["leaf2"] = []netip.Prefix{netip.MustParsePrefix("192.168.2.0/24")}
	return view, cfg
}

func TestPopulatePartialEdgeToEdgeInstallsSubnetRouterAndMPLS(t *testing.T) {
	view, cfg := setupLineConfig()
	rules := rulepop.NewMemPopulator()
	p := New(cfg, rules)

	ok := p.PopulatePartial("leaf1", "leaf2", []fabric.DeviceID{"spine1"}, nil)
	if !ok {
		t.Fatal("expected PopulatePartial to succeed")
	}
	if len(rules.SubnetRules) != 1 {
		t.Errorf("expected 1 subnet rule, got %d", len(rules.SubnetRules))
	}
	if len(rules.RouterRules) != 1 {
		t.Errorf("expected 1 router rule (v4 only, no v6 configured), got %d", len(rules.RouterRules))
	}
	if len(rules.MPLSRules) != 1 {
		t.Errorf("expected 1 MPLS rule, got %d", len(rules.MPLSRules))
	}
	_ = view
}

func TestPopulatePartialTransitTargetInstallsNoSubnetRule(t *testing.T) {
	view, cfg := setupLineConfig()
	rules := rulepop.NewMemPopulator()
	p := New(cfg, rules)

	ok := p.PopulatePartial("spine1", "leaf2", []fabric.DeviceID{"leaf2"}, nil)
	if !ok {
		t.Fatal("expected PopulatePartial to succeed")
	}
	if len(rules.SubnetRules) != 0 {
		t.Errorf("expected no subnet rule for non-edge target, got %d", len(rules.SubnetRules))
	}
	if len(rules.RouterRules) != 0 {
		t.Errorf("expected no router rule when target is not edge, got %d", len(rules.RouterRules))
	}
	if len(rules.MPLSRules) != 1 {
		t.Errorf("expected unconditional MPLS rule, got %d", len(rules.MPLSRules))
	}
	_ = view
}

func TestPopulatePartialFailsOnInstallFailure(t *testing.T) {
	_, cfg := setupLineConfig()
	rules := rulepop.NewMemPopulator()
	rules.FailSubnet["leaf1"] = true
	p := New(cfg, rules)

	if p.PopulatePartial("leaf1", "leaf2", []fabric.DeviceID{"spine1"}, nil) {
		t.Error("expected PopulatePartial to fail when subnet install fails")
	}
}

func TestPopulatePartialUsesCallerSubnetScopeWhenProvided(t *testing.T) {
	_, cfg := setupLineConfig()
	rules := rulepop.NewMemPopulator()
	p := New(cfg, rules)

	override := []netip.Prefix{netip.MustParsePrefix("10.10.0.0/16")}
	if !p.PopulatePartial("leaf1", "leaf2", []fabric.DeviceID{"spine1"}, override) {
		t.Fatal("expected success")
	}
	if len(rules.SubnetRules) != 1 || !rules.SubnetRules[0].Prefixes[0].Addr().IsValid() {
		t.Fatalf("unexpected subnet rule: %+v", rules.SubnetRules)
	}
	if rules.SubnetRules[0].Prefixes[0] != override[0] {
		t.Errorf("expected override scope to be used, got %v", rules.SubnetRules[0].Prefixes)
	}
}

func TestPopulateEcmpRulesWalksEveryEntry(t *testing.T) {
	view, cfg := setupLineConfig()
	rules := rulepop.NewMemPopulator()
	p := New(cfg, rules)

	graph, err := spg.Build(context.Background(), view, "leaf2")
	if err != nil {
		t.Fatal(err)
	}

	if !p.PopulateEcmpRules("leaf2", graph, nil) {
		t.Fatal("expected PopulateEcmpRules to succeed")
	}
	// leaf2's graph holds leaf2 itself (depth 0, edge-to-edge -> one subnet
	// rule), spine1 (depth 1, edge-to-transit -> no subnet rule) and leaf1
	// (depth 2, edge-to-edge -> one subnet rule).
	if len(rules.SubnetRules) != 2 {
		t.Errorf("expected 2 subnet rules across the whole tree, got %d", len(rules.SubnetRules))
	}
	if len(rules.MPLSRules) != 3 {
		t.Errorf("expected 3 MPLS rules (one per graph entry, root included), got %d", len(rules.MPLSRules))
	}
}

func TestPopulateEcmpRulesStopsOnFirstFailure(t *testing.T) {
	view, cfg := setupLineConfig()
	rules := rulepop.NewMemPopulator()
	rules.FailMPLS["spine1"] = true
	p := New(cfg, rules)

	graph, err := spg.Build(context.Background(), view, "leaf2")
	if err != nil {
		t.Fatal(err)
	}

	if p.PopulateEcmpRules("leaf2", graph, nil) {
		t.Error("expected failure to propagate from a partial failure")
	}
}

func TestPopulatePortAddressingPrimesBaselineWhenEmpty(t *testing.T) {
	cfg := newFakeConfig()
	rules := rulepop.NewMemPopulator()
	p := New(cfg, rules)

	info, ok := p.PopulatePortAddressing("leaf1")
	if !ok {
		t.Fatal("expected success")
	}
	if info == nil || *info != (rulepop.PortFilterInfo{}) {
		t.Errorf("expected zero-value baseline, got %+v", info)
	}
	if len(rules.RouterPunts) != 1 || len(rules.ArpNdpPunts) != 1 {
		t.Errorf("expected one router-IP punt and one ARP/NDP punt call, got %d/%d", len(rules.RouterPunts), len(rules.ArpNdpPunts))
	}
}
