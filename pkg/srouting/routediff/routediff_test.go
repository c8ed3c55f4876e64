package routediff

import (
	"context"
	"testing"

	"github.com/srfabric/srctl/pkg/srouting/fabric"
	"github.com/srfabric/srctl/pkg/srouting/spg"
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

func buildAll(t *testing.T, view fabric.View, roots []fabric.DeviceID) SpgMap {
	t.Helper()
	out := make(SpgMap)
	for _, r := range roots {
		g, err := spg.Build(context.Background(), view, r)
		if err != nil {
			t.Fatal(err)
		}
		out[r] = g
	}
	return out
}

func TestDamagedRoutesForLineGraph(t *testing.T) {
	view := lineTopology()
	roots := []fabric.DeviceID{"A", "B", "C"}
	current := buildAll(t, view, roots)

	routes, ok := DamagedRoutes(current, roots, link("A", "B"))
	if !ok {
		t.Fatal("expected ok=true with complete snapshot")
	}

	want := map[spg.Route]bool{
		{Target: "B", Root: "A"}: true,
		{Target: "C", Root: "A"}: true,
		{Target: "A", Root: "B"}: true,
		{Target: "A", Root: "C"}: true,
	}
	if len(routes) != len(want) {
		t.Fatalf("expected %d damaged routes, got %d: %v", len(want), len(routes), routes)
	}
	for _, r := range routes {
		if !want[r] {
			t.Errorf("unexpected damaged route %v", r)
		}
	}
}

func TestDamagedRoutesReturnsNotOkWhenSnapshotIncomplete(t *testing.T) {
	view := lineTopology()
	current := SpgMap{}

	_, ok := DamagedRoutes(current, []fabric.DeviceID{"A"}, link("A", "B"))
	if ok {
		t.Error("expected ok=false when a mastered root has no current entry")
	}
	_ = view
}

func TestDamagedRoutesIgnoresUnrelatedLink(t *testing.T) {
	view := lineTopology()
	roots := []fabric.DeviceID{"A", "B", "C"}
	current := buildAll(t, view, roots)

	routes, ok := DamagedRoutes(current, roots, link("X", "Y"))
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(routes) != 0 {
		t.Errorf("expected no damaged routes for an unrelated link, got %v", routes)
	}
}

func TestChangedRoutesEmptyWhenSnapshotsIdentical(t *testing.T) {
	view := lineTopology()
	roots := []fabric.DeviceID{"A", "B", "C"}
	current := buildAll(t, view, roots)
	updated := buildAll(t, view, roots)

	routes := ChangedRoutes(current, updated, roots)
	if len(routes) != 0 {
		t.Errorf("expected no changed routes for identical snapshots, got %v", routes)
	}
}

func TestChangedRoutesDegenerateForMissingRoot(t *testing.T) {
	view := lineTopology()
	updated := buildAll(t, view, []fabric.DeviceID{"A"})
	current := SpgMap{}

	routes := ChangedRoutes(current, updated, []fabric.DeviceID{"A"})
	if len(routes) != 1 || !routes[0].Degenerate() || routes[0].Target != "A" {
		t.Fatalf("expected single degenerate route for A, got %v", routes)
	}
}

func TestChangedRoutesDetectsNewLink(t *testing.T) {
	view := lineTopology()
	roots := []fabric.DeviceID{"A", "B", "C"}
	current := buildAll(t, view, roots)

	view.AddLink(link("A", "C"))
	updated := buildAll(t, view, roots)

	routes := ChangedRoutes(current, updated, roots)
	if len(routes) == 0 {
		t.Fatal("expected at least one changed route after adding a link")
	}

	foundAC := false
	for _, r := range routes {
		if r.Target == "C" && r.Root == "A" {
			foundAC = true
		}
	}
	if !foundAC {
		t.Errorf("expected (C,A) to be among changed routes, got %v", routes)
	}
}

func TestChangedRoutesIsSymmetricBetweenAppearAndDisappear(t *testing.T) {
	view := lineTopology()
	roots := []fabric.DeviceID{"A", "B", "C"}
	before := buildAll(t, view, roots)

	view.RemoveLink(link("B", "C"))
	after := buildAll(t, view, roots)

	forward := ChangedRoutes(before, after, roots)
	backward := ChangedRoutes(after, before, roots)

	toSet := func(rs []spg.Route) map[spg.Route]bool {
		m := make(map[spg.Route]bool, len(rs))
		for _, r := range rs {
			m[r] = true
		}
		return m
	}

	fs, bs := toSet(forward), toSet(backward)
	if len(fs) != len(bs) {
		t.Fatalf("expected symmetric changed-route sets, got %v vs %v", forward, backward)
	}
	for r := range fs {
		if !bs[r] {
			t.Errorf("route %v present forward but not backward", r)
		}
	}
}
