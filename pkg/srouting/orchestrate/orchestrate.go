// Package orchestrate implements the single-flight population state machine
// that drives a Populator across every locally-mastered device, diffing
// EcmpSpg snapshots to avoid a full reprogram when possible.
package orchestrate

import (
	"context"
	"net/netip"
	"sync"

	"github.com/srfabric/srctl/pkg/srouting/fabric"
	"github.com/srfabric/srctl/pkg/srouting/populate"
	"github.com/srfabric/srctl/pkg/srouting/retryfilters"
	"github.com/srfabric/srctl/pkg/srouting/routediff"
	"github.com/srfabric/srctl/pkg/srouting/rulepop"
	"github.com/srfabric/srctl/pkg/srouting/spg"
	"github.com/srfabric/srctl/pkg/util"
)

// Status is the Orchestrator's lifecycle state, readable outside statusLock
// only for diagnostic logging — every transition happens under the lock.
type Status int

const (
	// IDLE is the initial state: no cycle has ever run.
	IDLE Status = iota
	// STARTED means a population cycle is in flight.
	STARTED
	// SUCCEEDED means the last cycle completed without a partial failure.
	SUCCEEDED
	// ABORTED means the last cycle hit a partial failure and current is stale.
	ABORTED
)

func (s Status) String() string {
	switch s {
	case IDLE:
		return "IDLE"
	case STARTED:
		return "STARTED"
	case SUCCEEDED:
		return "SUCCEEDED"
	case ABORTED:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// CandidatePoint names a device and a scope the caller wants a subnet
// operation to apply at — the "cp" parameter to populateSubnet.
type CandidatePoint struct {
	Device fabric.DeviceID
}

// Orchestrator owns the current/updated EcmpSpg snapshots and Status,
// serializing every public operation through statusLock.
type Orchestrator struct {
	view      fabric.View
	populator *populate.Populator
	rules     rulepop.Populator
	retries   *retryfilters.Scheduler

	statusLock sync.Mutex
	status     Status
	current    routediff.SpgMap
	updated    routediff.SpgMap
}

// New creates an Orchestrator over view (topology/mastership), populator
// (the Populator), and rules (the RulePopulator, needed directly for the
// counter reset, the single-port-filter passthroughs, and as the Install
// driven by the RetryFilters scheduler started from PopulatePortAddressing).
func New(view fabric.View, populator *populate.Populator, rules rulepop.Populator) *Orchestrator {
	return &Orchestrator{
		view:      view,
		populator: populator,
		rules:     rules,
		retries:   retryfilters.New(rules),
		status:    IDLE,
		current:   make(routediff.SpgMap),
		updated:   make(routediff.SpgMap),
	}
}

// CurrentStatus reports the current lifecycle state. It takes statusLock
// itself, so callers must not already hold it.
func (o *Orchestrator) CurrentStatus() Status {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()
	return o.status
}

func (o *Orchestrator) masteredDevices(ctx context.Context) ([]fabric.DeviceID, error) {
	devices, err := o.view.Devices(ctx)
	if err != nil {
		return nil, err
	}
	var out []fabric.DeviceID
	for _, d := range devices {
		master, err := o.view.IsLocalMaster(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		if master {
			out = append(out, d.ID)
		}
	}
	return out, nil
}

// PopulateAllRoutingRules transitions to STARTED, resets the rule counter,
// and builds a fresh EcmpSpg for every locally-mastered device, installing
// its full route set. On the first failure it transitions to ABORTED and
// returns false; otherwise it transitions to SUCCEEDED and returns true.
func (o *Orchestrator) PopulateAllRoutingRules(ctx context.Context) bool {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()
	return o.populateAllRoutingRulesLocked(ctx)
}

func (o *Orchestrator) populateAllRoutingRulesLocked(ctx context.Context) bool {
	o.status = STARTED
	o.rules.ResetCounter()

	roots, err := o.masteredDevices(ctx)
	if err != nil {
		util.WithField("error", err).Warn("populateAllRoutingRules: failed to enumerate mastered devices")
		o.status = ABORTED
		return false
	}

	next := make(routediff.SpgMap, len(roots))
	for _, root := range roots {
		graph, err := spg.Build(ctx, o.view, root)
		if err != nil {
			util.WithFields(map[string]interface{}{"root": root, "error": err}).Warn("populateAllRoutingRules: EcmpSpg build failed")
			o.status = ABORTED
			return false
		}
		if !o.populator.PopulateEcmpRules(root, graph, nil) {
			util.WithField("root", root).Warn("populateAllRoutingRules: partial install failure")
			o.status = ABORTED
			return false
		}
		next[root] = graph
	}

	o.current = next
	o.status = SUCCEEDED
	return true
}

// PopulateRoutingRulesForLinkStatusChange reacts to a link event: failedLink
// set means a link failure (diff via damagedRoutes), nil means "recompute
// and diff against current" (diff via changedRoutes, e.g. link-up or
// topology-change events). A cycle already STARTED makes this an
// observably-successful no-op.
func (o *Orchestrator) PopulateRoutingRulesForLinkStatusChange(ctx context.Context, failedLink *fabric.Link) bool {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()

	if o.status == STARTED {
		util.Warn("populateRoutingRulesForLinkStatusChange: previous population not finished")
		return true
	}

	roots, err := o.masteredDevices(ctx)
	if err != nil {
		util.WithField("error", err).Warn("populateRoutingRulesForLinkStatusChange: failed to enumerate mastered devices")
		o.status = ABORTED
		return false
	}

	updated := make(routediff.SpgMap, len(roots))
	for _, root := range roots {
		graph, err := spg.Build(ctx, o.view, root)
		if err != nil {
			util.WithFields(map[string]interface{}{"root": root, "error": err}).Warn("populateRoutingRulesForLinkStatusChange: EcmpSpg build failed")
			o.status = ABORTED
			return false
		}
		updated[root] = graph
	}
	o.updated = updated
	o.status = STARTED

	var routes []spg.Route
	if failedLink == nil {
		routes = routediff.ChangedRoutes(o.current, o.updated, roots)
	} else {
		damaged, ok := routediff.DamagedRoutes(o.current, roots, *failedLink)
		if !ok {
			return o.populateAllRoutingRulesLocked(ctx)
		}
		routes = damaged
	}

	if len(routes) == 0 {
		o.status = SUCCEEDED
		return true
	}

	return o.repopulateLocked(ctx, routes)
}

// repopulateLocked partitions routes by destination device. Degenerate
// single-element routes rebuild their whole tree from scratch; two-element
// (target, dest) routes repair one branch via updated[dest]. Only after
// every route toward a given destination succeeds is updated[dest] copied
// into current[dest] — a partial failure leaves current stale and aborts.
func (o *Orchestrator) repopulateLocked(ctx context.Context, routes []spg.Route) bool {
	byDest := make(map[fabric.DeviceID][]spg.Route)
	for _, r := range routes {
		dest := r.Root
		if r.Degenerate() {
			dest = r.Target
		}
		byDest[dest] = append(byDest[dest], r)
	}

	for dest, destRoutes := range byDest {
		if !o.repopulateDestinationLocked(ctx, dest, destRoutes) {
			o.status = ABORTED
			return false
		}
	}

	o.status = SUCCEEDED
	return true
}

func (o *Orchestrator) repopulateDestinationLocked(ctx context.Context, dest fabric.DeviceID, routes []spg.Route) bool {
	for _, r := range routes {
		if r.Degenerate() {
			graph, err := spg.Build(ctx, o.view, r.Target)
			if err != nil {
				util.WithFields(map[string]interface{}{"root": r.Target, "error": err}).Warn("repopulate: EcmpSpg build failed")
				return false
			}
			if !o.populator.PopulateEcmpRules(r.Target, graph, nil) {
				return false
			}
			o.current[r.Target] = graph
			continue
		}

		updatedGraph, ok := o.updated[r.Root]
		if !ok {
			util.WithFields(map[string]interface{}{"dest": r.Root}).Warn("repopulate: missing updated snapshot for destination")
			return false
		}
		paths, ok := updatedGraph.ViaForTarget(r.Target)
		if !ok {
			util.WithFields(map[string]interface{}{"target": r.Target, "dest": r.Root}).Warn("repopulate: target no longer reachable in updated snapshot")
			return false
		}
		nextHops := firstHopsForRepopulate(paths, r.Root)
		if !o.populator.PopulatePartial(r.Target, r.Root, nextHops, nil) {
			return false
		}
	}

	if updatedGraph, ok := o.updated[dest]; ok {
		o.current[dest] = updatedGraph
	}
	return true
}

func firstHopsForRepopulate(paths []spg.ViaPath, destSw fabric.DeviceID) []fabric.DeviceID {
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

// StartPopulationProcess begins a full reprogram from IDLE, SUCCEEDED, or
// ABORTED. From STARTED it logs and does nothing — PopulateAllRoutingRules
// already serializes via statusLock, but the explicit check avoids a
// redundant build when the caller can tell upfront.
func (o *Orchestrator) StartPopulationProcess(ctx context.Context) bool {
	o.statusLock.Lock()
	status := o.status
	o.statusLock.Unlock()

	if status == STARTED {
		util.Warn("startPopulationProcess: cycle already in progress")
		return false
	}
	return o.PopulateAllRoutingRules(ctx)
}

// ResumePopulationProcess restarts a full reprogram, but only from ABORTED —
// there is no partial-progress checkpoint to resume from.
func (o *Orchestrator) ResumePopulationProcess(ctx context.Context) bool {
	o.statusLock.Lock()
	status := o.status
	o.statusLock.Unlock()

	if status != ABORTED {
		util.WithField("status", status).Warn("resumePopulationProcess: can only resume from ABORTED")
		return false
	}
	return o.PopulateAllRoutingRules(ctx)
}

// PopulateSubnet installs rules for subnets at cp.Device using its current
// EcmpSpg. Fails if cp.Device has no current entry.
func (o *Orchestrator) PopulateSubnet(cp CandidatePoint, subnets []netip.Prefix) bool {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()

	graph, ok := o.current[cp.Device]
	if !ok {
		util.WithField("device", cp.Device).Warn("populateSubnet: no current EcmpSpg for device")
		return false
	}
	return o.populator.PopulateEcmpRules(cp.Device, graph, subnets)
}

// RevokeSubnet delegates to the RulePopulator's subnet revocation.
func (o *Orchestrator) RevokeSubnet(subnets []netip.Prefix) bool {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()
	return o.rules.RevokeIPRuleForSubnet(subnets)
}

// PurgeEcmpGraph drops deviceId's entries from both snapshot maps and
// triggers a topology-change cycle (failedLink=nil), forcing every
// mastered root to recompute against changedRoutes.
func (o *Orchestrator) PurgeEcmpGraph(ctx context.Context, deviceID fabric.DeviceID) bool {
	o.statusLock.Lock()
	delete(o.current, deviceID)
	delete(o.updated, deviceID)
	o.statusLock.Unlock()

	return o.PopulateRoutingRulesForLinkStatusChange(ctx, nil)
}

// PopulateSinglePortFilters installs filters for one newly-enabled port,
// in response to a portEnabled event. It is not part of the snapshot/diff
// state machine and so is not serialized by statusLock — it delegates
// straight to the RulePopulator.
func (o *Orchestrator) PopulateSinglePortFilters(id fabric.DeviceID, port fabric.PortID) {
	o.rules.PopulateSinglePortFilters(id, port)
}

// RevokeSinglePortFilters removes filters for one disabled port, unlocked
// for the same reason as PopulateSinglePortFilters.
func (o *Orchestrator) RevokeSinglePortFilters(id fabric.DeviceID, port fabric.PortID) {
	o.rules.RevokeSinglePortFilters(id, port)
}

// PopulatePortAddressing reacts to a deviceAdded event: it installs id's
// router-IP and ARP/NDP punts and primes its port-filter baseline via the
// Populator, then — on a zero baseline, meaning the device's ports weren't
// yet discoverable — starts a RetryFilters loop so the filters keep getting
// retried until they stabilize. Not part of the snapshot/diff state machine,
// so not serialized by statusLock, matching PopulateSinglePortFilters.
func (o *Orchestrator) PopulatePortAddressing(id fabric.DeviceID) bool {
	info, ok := o.populator.PopulatePortAddressing(id)
	if !ok {
		util.WithField("device", id).Warn("populatePortAddressing: initial port filter read failed")
		return false
	}
	if info.FilteredPorts == 0 && info.DisabledPorts == 0 && info.ErrorPorts == 0 {
		o.retries.Start(id, info)
	}
	return true
}

// RetryingPortAddressing reports whether id has an active RetryFilters loop,
// for CLI/diagnostic use.
func (o *Orchestrator) RetryingPortAddressing(id fabric.DeviceID) bool {
	return o.retries.Running(id)
}

// Counter reports the RulePopulator's advisory install count for the
// current cycle.
func (o *Orchestrator) Counter() int64 {
	return o.rules.Counter()
}

// Current returns the EcmpSpg currently stored for root, if any. Exposed for
// the CLI's "topology current" command and for tests; callers must not mutate
// the returned graph.
func (o *Orchestrator) Current(root fabric.DeviceID) (*spg.EcmpSpg, bool) {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()
	g, ok := o.current[root]
	return g, ok
}
