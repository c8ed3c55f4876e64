// Package audit provides a JSON-lines audit trail of population cycles.
package audit

import (
	"fmt"
	"time"

	"github.com/srfabric/srctl/pkg/srouting/fabric"
	"github.com/srfabric/srctl/pkg/srouting/spg"
)

// Event represents one auditable Orchestrator operation: a full reprogram,
// a link-status-change cycle, a subnet add/remove, or a purge.
type Event struct {
	ID            string        `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	Operation     string        `json:"operation"`
	Root          string        `json:"root,omitempty"`
	FailedLink    string        `json:"failed_link,omitempty"`
	Status        string        `json:"status"`
	RoutesTouched []string      `json:"routes_touched,omitempty"`
	RuleCounter   int64         `json:"rule_counter"`
	Success       bool          `json:"success"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Filter defines criteria for querying audit events.
type Filter struct {
	Operation   string
	Root        string
	Status      string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event for operation.
func NewEvent(operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		Operation: operation,
	}
}

// WithRoot sets the root device the operation concerned.
func (e *Event) WithRoot(root fabric.DeviceID) *Event {
	e.Root = string(root)
	return e
}

// WithFailedLink records the link that triggered a link-status-change cycle.
func (e *Event) WithFailedLink(link fabric.Link) *Event {
	e.FailedLink = link.String()
	return e
}

// WithStatus records the Orchestrator's resulting lifecycle status.
func (e *Event) WithStatus(status string) *Event {
	e.Status = status
	return e
}

// WithRoutes records the routes the cycle touched.
func (e *Event) WithRoutes(routes []spg.Route) *Event {
	touched := make([]string, len(routes))
	for i, r := range routes {
		touched[i] = r.String()
	}
	e.RoutesTouched = touched
	return e
}

// WithCounter records the RulePopulator's advisory install count.
func (e *Event) WithCounter(counter int64) *Event {
	e.RuleCounter = counter
	return e
}

// WithSuccess marks the event as successful.
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed.
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration.
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
