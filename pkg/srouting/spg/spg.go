// Package spg builds equal-cost shortest-path graphs (EcmpSpg) rooted at a
// single device, by breadth-first expansion over a FabricView.
package spg

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/srfabric/srctl/pkg/srouting/fabric"
)

// ViaPath is the ordered sequence of intermediate devices on one ECMP
// branch from a graph's root to a target, excluding both endpoints. An
// empty ViaPath means the target is a direct neighbor of the root.
type ViaPath []fabric.DeviceID

// Equal reports whether two via-paths name the same devices in the same
// order.
func (p ViaPath) Equal(other ViaPath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

func (p ViaPath) key() string {
	parts := make([]string, len(p))
	for i, id := range p {
		parts[i] = string(id)
	}
	return strings.Join(parts, ">")
}

// Route names one (target, root) route pair. Degenerate routes carry only
// a target, used by the Orchestrator's repopulate algorithm to mean "rebuild
// the whole tree rooted at target" rather than "repair one branch into it".
type Route struct {
	Target fabric.DeviceID
	Root   fabric.DeviceID
}

// Degenerate reports whether this route names only a target, no root.
func (r Route) Degenerate() bool {
	return r.Root == ""
}

func (r Route) String() string {
	if r.Degenerate() {
		return string(r.Target)
	}
	return fmt.Sprintf("(%s,%s)", r.Target, r.Root)
}

// viaSet is the set of via-paths reaching one target at one depth, keyed by
// a canonical string so duplicate predecessor paths collapse naturally.
type viaSet map[string]ViaPath

func newViaSet() viaSet {
	return make(viaSet)
}

func (s viaSet) add(p ViaPath) {
	cp := make(ViaPath, len(p))
	copy(cp, p)
	s[cp.key()] = cp
}

func (s viaSet) equal(other viaSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k, p := range s {
		op, ok := other[k]
		if !ok || !p.Equal(op) {
			return false
		}
	}
	return true
}

func (s viaSet) paths() []ViaPath {
	out := make([]ViaPath, 0, len(s))
	for _, p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// depthBucket maps target device to its via-set at one BFS depth.
type depthBucket map[fabric.DeviceID]viaSet

// EcmpSpg is the shortest-path graph rooted at Root, indexed by hop-distance.
// Immutable after Build returns.
type EcmpSpg struct {
	root      fabric.DeviceID
	viaByDepth []depthBucket
}

// Root returns the device this graph is rooted at.
func (g *EcmpSpg) Root() fabric.DeviceID {
	return g.root
}

// ViaForTarget linearly scans depth buckets and returns the via-paths to
// target, or (nil, false) if target is unreachable from the root.
func (g *EcmpSpg) ViaForTarget(target fabric.DeviceID) ([]ViaPath, bool) {
	for _, bucket := range g.viaByDepth {
		if set, ok := bucket[target]; ok {
			return set.paths(), true
		}
	}
	return nil, false
}

// Entry is one (depth, target, via-paths) row of the graph, used by callers
// that need to walk every target rather than look one up.
type Entry struct {
	Depth  int
	Target fabric.DeviceID
	Paths  []ViaPath
}

// Entries returns every (depth, target) row in depth order. Within a depth,
// targets are returned in lexical order for deterministic iteration.
func (g *EcmpSpg) Entries() []Entry {
	var out []Entry
	for depth, bucket := range g.viaByDepth {
		targets := make([]fabric.DeviceID, 0, len(bucket))
		for t := range bucket {
			targets = append(targets, t)
		}
		sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
		for _, t := range targets {
			out = append(out, Entry{Depth: depth, Target: t, Paths: bucket[t].paths()})
		}
	}
	return out
}

// Targets returns every device reachable from the root, across all depths.
func (g *EcmpSpg) Targets() []fabric.DeviceID {
	out := make([]fabric.DeviceID, 0)
	for _, bucket := range g.viaByDepth {
		for target := range bucket {
			out = append(out, target)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal reports whether two graphs have the same root and identical
// via-path sets for every target — set equality per depth bucket, as
// specified: insertion order is irrelevant, only the multiset of ordered
// via-paths matters.
func (g *EcmpSpg) Equal(other *EcmpSpg) bool {
	if other == nil {
		return false
	}
	if g.root != other.root {
		return false
	}
	a := flatten(g.viaByDepth)
	b := flatten(other.viaByDepth)
	if len(a) != len(b) {
		return false
	}
	for target, set := range a {
		os, ok := b[target]
		if !ok || !set.equal(os) {
			return false
		}
	}
	return true
}

func flatten(buckets []depthBucket) map[fabric.DeviceID]viaSet {
	out := make(map[fabric.DeviceID]viaSet)
	for _, bucket := range buckets {
		for target, set := range bucket {
			out[target] = set
		}
	}
	return out
}

// Build performs a breadth-first expansion from root over view's bidirectional
// links. At each frontier, every newly-reached device records a via-path for
// every minimum-hop predecessor that reached it this round — the full ECMP
// set. Only devices and links currently visible to view participate;
// mastership is not consulted.
func Build(ctx context.Context, view fabric.View, root fabric.DeviceID) (*EcmpSpg, error) {
	depth0 := depthBucket{root: newViaSetWith(ViaPath{})}
	g := &EcmpSpg{root: root, viaByDepth: []depthBucket{depth0}}

	visited := map[fabric.DeviceID]int{root: 0}
	frontier := []fabric.DeviceID{root}

	for depth := 1; len(frontier) > 0; depth++ {
		next := depthBucket{}
		var nextFrontier []fabric.DeviceID

		for _, pred := range frontier {
			links, err := view.LinksOf(ctx, pred)
			if err != nil {
				return nil, fmt.Errorf("listing links of %s: %w", pred, err)
			}

			predVia, _ := g.ViaForTarget(pred)
			if pred == root {
				predVia = []ViaPath{{}}
			}

			for _, link := range links {
				var neighbor fabric.DeviceID
				switch {
				case link.Src.Device == pred:
					neighbor = link.Dst.Device
				case link.Dst.Device == pred:
					neighbor = link.Src.Device
				default:
					continue
				}
				if neighbor == root {
					continue
				}
				if d, seen := visited[neighbor]; seen && d < depth {
					continue
				}

				set, ok := next[neighbor]
				if !ok {
					set = newViaSet()
					next[neighbor] = set
					nextFrontier = append(nextFrontier, neighbor)
				}

				for _, pv := range predVia {
					via := make(ViaPath, 0, len(pv)+1)
					via = append(via, pv...)
					if pred != root {
						via = append(via, pred)
					}
					set.add(via)
				}

				visited[neighbor] = depth
			}
		}

		if len(next) == 0 {
			break
		}
		g.viaByDepth = append(g.viaByDepth, next)
		frontier = nextFrontier
	}

	return g, nil
}

func newViaSetWith(p ViaPath) viaSet {
	s := newViaSet()
	s.add(p)
	return s
}
