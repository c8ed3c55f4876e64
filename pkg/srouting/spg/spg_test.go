package spg

import (
	"context"
	"testing"

	"github.com/srfabric/srctl/pkg/srouting/fabric"
)

func link(a, b fabric.DeviceID) fabric.Link {
	return fabric.Link{
		Src: fabric.Endpoint{Device: a, Port: "1"},
		Dst: fabric.Endpoint{Device: b, Port: "1"},
	}
}

func lineTopology() *fabric.MemView {
	v := fabric.NewMemView()
	for _, id := range []fabric.DeviceID{"A", "B", "C"} {
		v.AddDevice(id)
	}
	v.AddLink(link("A", "B"))
	v.AddLink(link("B", "C"))
	return v
}

func triangleTopology() *fabric.MemView {
	v := fabric.NewMemView()
	for _, id := range []fabric.DeviceID{"A", "B", "C"} {
		v.AddDevice(id)
	}
	v.AddLink(link("A", "B"))
	v.AddLink(link("B", "C"))
	v.AddLink(link("A", "C"))
	return v
}

func squareTopology() *fabric.MemView {
	v := fabric.NewMemView()
	for _, id := range []fabric.DeviceID{"A", "B", "C", "D"} {
		v.AddDevice(id)
	}
	v.AddLink(link("A", "B"))
	v.AddLink(link("B", "C"))
	v.AddLink(link("C", "D"))
	v.AddLink(link("D", "A"))
	return v
}

func TestBuildLineGraph(t *testing.T) {
	g, err := Build(context.Background(), lineTopology(), "A")
	if err != nil {
		t.Fatal(err)
	}

	paths, ok := g.ViaForTarget("B")
	if !ok || len(paths) != 1 || !paths[0].Equal(ViaPath{}) {
		t.Fatalf("expected B reachable via direct hop, got %v ok=%v", paths, ok)
	}

	paths, ok = g.ViaForTarget("C")
	if !ok || len(paths) != 1 || !paths[0].Equal(ViaPath{"B"}) {
		t.Fatalf("expected C reachable via [B], got %v ok=%v", paths, ok)
	}

	if _, ok := g.ViaForTarget("Z"); ok {
		t.Error("expected unknown target to be unreachable")
	}
}

func TestBuildTriangleHasSingleHopToBothNeighbors(t *testing.T) {
	g, err := Build(context.Background(), triangleTopology(), "A")
	if err != nil {
		t.Fatal(err)
	}

	for _, target := range []fabric.DeviceID{"B", "C"} {
		paths, ok := g.ViaForTarget(target)
		if !ok || len(paths) != 1 || !paths[0].Equal(ViaPath{}) {
			t.Errorf("expected %s at depth 1 with direct via-path, got %v", target, paths)
		}
	}
}

func TestBuildSquareHasTwoEcmpPathsToOppositeCorner(t *testing.T) {
	g, err := Build(context.Background(), squareTopology(), "A")
	if err != nil {
		t.Fatal(err)
	}

	paths, ok := g.ViaForTarget("C")
	if !ok || len(paths) != 2 {
		t.Fatalf("expected 2 ECMP via-paths to C, got %v", paths)
	}

	want := map[string]bool{
		ViaPath{"B"}.key(): true,
		ViaPath{"D"}.key(): true,
	}
	for _, p := range paths {
		if !want[p.key()] {
			t.Errorf("unexpected via-path %v", p)
		}
	}
}

func TestBuildDepthZeroContainsOnlyRootWithEmptyPath(t *testing.T) {
	g, err := Build(context.Background(), lineTopology(), "A")
	if err != nil {
		t.Fatal(err)
	}

	entries := g.Entries()
	if len(entries) == 0 {
		t.Fatal("expected at least one entry")
	}
	if entries[0].Depth != 0 || entries[0].Target != "A" {
		t.Fatalf("expected first entry to be (0, A), got %+v", entries[0])
	}
}

func TestBuildTargetsCoversAllReachableDevices(t *testing.T) {
	g, err := Build(context.Background(), lineTopology(), "A")
	if err != nil {
		t.Fatal(err)
	}

	targets := g.Targets()
	if len(targets) != 3 || targets[0] != "A" || targets[1] != "B" || targets[2] != "C" {
		t.Fatalf("expected targets [A B C] (root included at depth 0), got %v", targets)
	}
}

func TestEqualIsInsensitiveToViaPathOrdering(t *testing.T) {
	g1, _ := Build(context.Background(), squareTopology(), "A")
	g2, _ := Build(context.Background(), squareTopology(), "A")

	if !g1.Equal(g2) {
		t.Error("expected two builds of the same topology to be equal")
	}
}

func TestEqualDetectsDifferentRoots(t *testing.T) {
	g1, _ := Build(context.Background(), squareTopology(), "A")
	g2, _ := Build(context.Background(), squareTopology(), "B")

	if g1.Equal(g2) {
		t.Error("expected graphs with different roots to differ")
	}
}

func TestEqualDetectsTopologyChange(t *testing.T) {
	before, _ := Build(context.Background(), squareTopology(), "A")

	v := squareTopology()
	v.RemoveLink(link("D", "A"))
	after, _ := Build(context.Background(), v, "A")

	if before.Equal(after) {
		t.Error("expected removing a link to change the graph")
	}
}

func TestRouteDegenerate(t *testing.T) {
	if !(Route{Target: "A"}).Degenerate() {
		t.Error("expected route with no root to be degenerate")
	}
	if (Route{Target: "A", Root: "B"}).Degenerate() {
		t.Error("expected route with a root to not be degenerate")
	}
}
