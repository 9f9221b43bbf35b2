// Package reconcile diffs a compiled desired-route set against observed
// dataplane state and applies the minimal set of add/remove operations.
//
// One reconciliation walks Planned → Diffed → Applying → Applied, or ends
// in PartiallyFailed when any operation fails. Apply is best-effort with no
// rollback: each failure is recorded against its route and the remaining
// operations still run. Re-running the same spec against already-applied
// state diffs to a no-op.
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/jalapeno-sdn/srctl/pkg/dataplane"
	"github.com/jalapeno-sdn/srctl/pkg/route"
	"github.com/jalapeno-sdn/srctl/pkg/spec"
	"github.com/jalapeno-sdn/srctl/pkg/util"
)

// State is the reconciliation phase. Applied and PartiallyFailed are
// terminal.
type State string

const (
	StatePlanned         State = "Planned"
	StateDiffed          State = "Diffed"
	StateApplying        State = "Applying"
	StateApplied         State = "Applied"
	StatePartiallyFailed State = "PartiallyFailed"
)

// Plan is the outcome of a diff: what to add, what to remove, what already
// matches.
type Plan struct {
	ToAdd     []route.ConcreteRoute
	ToRemove  []route.ConcreteRoute
	Unchanged []route.ConcreteRoute
}

// Empty reports whether the plan is a no-op.
func (p Plan) Empty() bool {
	return len(p.ToAdd) == 0 && len(p.ToRemove) == 0
}

// Diff compares desired routes with observed state. Equality key is
// (platform, table, family, prefix); a route is unchanged only when the
// egress descriptor also matches exactly — otherwise it is removed and
// re-added, never mutated in place, so backend calls stay uniform.
// Duplicate desired keys keep the first occurrence (stable).
func Diff(desired []route.ConcreteRoute, observed route.State) Plan {
	var plan Plan
	seen := make(map[route.Key]bool, len(desired))
	for _, want := range desired {
		key := want.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		have, ok := observed[key]
		switch {
		case !ok:
			plan.ToAdd = append(plan.ToAdd, want)
		case have.Equal(want.Egress):
			plan.Unchanged = append(plan.Unchanged, want)
		default:
			removed := want
			removed.Egress = have
			plan.ToRemove = append(plan.ToRemove, removed)
			plan.ToAdd = append(plan.ToAdd, want)
		}
	}
	return plan
}

// DiffDeletion plans removal of the given route identities: exactly those
// present in observed state, carrying the observed egress so backends can
// unbind policies. Identities never applied diff to an empty plan.
func DiffDeletion(identities []route.ConcreteRoute, observed route.State) Plan {
	var plan Plan
	seen := make(map[route.Key]bool, len(identities))
	for _, id := range identities {
		key := id.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		if have, ok := observed[key]; ok {
			removed := id
			removed.Egress = have
			plan.ToRemove = append(plan.ToRemove, removed)
		}
	}
	return plan
}

// FailedOp records one failed backend operation.
type FailedOp struct {
	Route     route.ConcreteRoute
	Operation string // "add" or "remove"
	Err       error
}

// Result reports one reconciliation.
type Result struct {
	State     State
	Added     int
	Removed   int
	Unchanged int
	Failed    []FailedOp
}

// Err returns an aggregate error when the reconciliation partially failed.
func (r *Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d operation(s) failed", util.ErrBackendFailed, len(r.Failed))
}

// Reconciler applies plans through a platform backend.
type Reconciler struct {
	backend dataplane.Programmer
}

// New creates a reconciler over a backend.
func New(backend dataplane.Programmer) *Reconciler {
	return &Reconciler{backend: backend}
}

// Apply executes a plan: removals first (so replaced keys do not trip
// duplicate-route rejection), then additions. Cancellation stops new
// operations from being issued; an in-flight backend mutation is allowed
// to complete.
func (r *Reconciler) Apply(ctx context.Context, plan Plan) *Result {
	result := &Result{State: StateApplying, Unchanged: len(plan.Unchanged)}

	for _, cr := range plan.ToRemove {
		if ctx.Err() != nil {
			break
		}
		if err := r.backend.RemoveRoute(ctx, cr); err != nil {
			result.Failed = append(result.Failed, FailedOp{Route: cr, Operation: "remove", Err: wrapBackend(cr, "remove", err)})
			util.WithRoute(cr.Source).Errorf("remove %s failed: %v", cr.Key(), err)
			continue
		}
		result.Removed++
	}

	for _, cr := range plan.ToAdd {
		if ctx.Err() != nil {
			break
		}
		if err := r.backend.EnsureRoute(ctx, cr); err != nil {
			result.Failed = append(result.Failed, FailedOp{Route: cr, Operation: "add", Err: wrapBackend(cr, "add", err)})
			util.WithRoute(cr.Source).Errorf("add %s failed: %v", cr.Key(), err)
			continue
		}
		result.Added++
	}

	if len(result.Failed) > 0 {
		result.State = StatePartiallyFailed
	} else {
		result.State = StateApplied
	}
	return result
}

func wrapBackend(cr route.ConcreteRoute, op string, err error) error {
	return &util.BackendError{
		Platform:  string(cr.Platform),
		Operation: op,
		Prefix:    cr.Prefix,
		Table:     cr.Table,
		Err:       err,
	}
}

// tableLocks serializes Apply per (platform, table id): two route groups
// targeting the same table must not mutate it concurrently.
var tableLocks sync.Map

// LockTable acquires the mutual-exclusion scope for one (platform, table)
// and returns the unlock func.
func LockTable(platform spec.Platform, table uint32) func() {
	key := fmt.Sprintf("%s|%d", platform, table)
	mu, _ := tableLocks.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
