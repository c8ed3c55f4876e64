// Package routediff compares EcmpSpg snapshots to the minimal set of routes
// that changed, as pure functions with no I/O — the Orchestrator supplies
// the snapshots and the set of locally-mastered roots to consider.
package routediff

import (
	"github.com/srfabric/srctl/pkg/srouting/fabric"
	"github.com/srfabric/srctl/pkg/srouting/spg"
)

// SpgMap is a snapshot of one EcmpSpg per root device.
type SpgMap map[fabric.DeviceID]*spg.EcmpSpg

// DamagedRoutes enumerates every (target, root) route in current whose
// via-path traverses failedLink, for every root in masteredRoots. It returns
// ok=false if any root in masteredRoots has no entry in current — the
// Orchestrator treats that as "snapshot too stale to diff" and forces a
// full reprogram instead of trusting a partial result.
func DamagedRoutes(current SpgMap, masteredRoots []fabric.DeviceID, failedLink fabric.Link) (routes []spg.Route, ok bool) {
	seen := make(map[spg.Route]bool)

	for _, root := range masteredRoots {
		graph, present := current[root]
		if !present {
			return nil, false
		}

		for _, entry := range graph.Entries() {
			for _, via := range entry.Paths {
				if pathCrossesLink(root, entry.Target, via, failedLink) {
					route := spg.Route{Target: entry.Target, Root: root}
					if !seen[route] {
						seen[route] = true
						routes = append(routes, route)
					}
					break
				}
			}
		}
	}

	return routes, true
}

// pathCrossesLink reports whether any consecutive hop along root -> via... ->
// target equals failedLink, in either direction.
func pathCrossesLink(root, target fabric.DeviceID, via spg.ViaPath, failedLink fabric.Link) bool {
	hops := make([]fabric.DeviceID, 0, len(via)+2)
	hops = append(hops, root)
	hops = append(hops, via...)
	hops = append(hops, target)

	for i := 0; i < len(hops)-1; i++ {
		if failedLink.ConnectsDevices(hops[i], hops[i+1]) {
			return true
		}
	}
	return false
}

// ChangedRoutes enumerates every route whose via-path-set differs between
// current and updated, for every root in masteredRoots. A root missing from
// current emits the degenerate route (root,) — meaning "no prior snapshot to
// diff against, rebuild this tree from scratch" — rather than forcing a
// global full reprogram the way DamagedRoutes' failure mode does.
func ChangedRoutes(current, updated SpgMap, masteredRoots []fabric.DeviceID) []spg.Route {
	seen := make(map[spg.Route]bool)
	var routes []spg.Route

	add := func(r spg.Route) {
		if !seen[r] {
			seen[r] = true
			routes = append(routes, r)
		}
	}

	for _, root := range masteredRoots {
		if _, ok := current[root]; !ok {
			add(spg.Route{Target: root})
			continue
		}
		for _, r := range compare(updated, current, root) {
			add(r)
		}
		for _, r := range compare(current, updated, root) {
			add(r)
		}
	}

	return routes
}

// compare emits (target, root) for every target reachable in base[root]
// whose via-path-set differs from (or is absent in) comp[root].
func compare(base, comp SpgMap, root fabric.DeviceID) []spg.Route {
	baseGraph, ok := base[root]
	if !ok {
		return nil
	}
	compGraph := comp[root]

	var routes []spg.Route
	for _, target := range baseGraph.Targets() {
		basePaths, _ := baseGraph.ViaForTarget(target)

		var compPaths []spg.ViaPath
		if compGraph != nil {
			compPaths, _ = compGraph.ViaForTarget(target)
		}

		if !viaPathsEqual(basePaths, compPaths) {
			routes = append(routes, spg.Route{Target: target, Root: root})
		}
	}
	return routes
}

// viaPathsEqual compares two via-path sets. Both inputs come from
// EcmpSpg.ViaForTarget, which returns paths in a stable canonical order, so
// set equality reduces to pairwise sequence equality.
func viaPathsEqual(a, b []spg.ViaPath) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
