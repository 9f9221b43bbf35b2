package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jalapeno-sdn/srctl/pkg/dataplane"
	"github.com/jalapeno-sdn/srctl/pkg/route"
	"github.com/jalapeno-sdn/srctl/pkg/spec"
	"github.com/jalapeno-sdn/srctl/pkg/util"
)

func linuxRoute(prefix, intf string, segs ...string) route.ConcreteRoute {
	return route.ConcreteRoute{
		Platform: spec.PlatformLinux,
		Table:    0,
		Family:   spec.FamilyIPv4,
		Prefix:   prefix,
		Egress:   route.Egress{Interface: intf, SegmentList: segs},
		Source:   "test",
	}
}

func TestDiff(t *testing.T) {
	t.Run("everything new", func(t *testing.T) {
		desired := []route.ConcreteRoute{linuxRoute("10.1.1.0/24", "ens4", "fc00::1")}
		plan := Diff(desired, route.State{})
		if len(plan.ToAdd) != 1 || len(plan.ToRemove) != 0 || len(plan.Unchanged) != 0 {
			t.Errorf("plan = %+v", plan)
		}
	})

	t.Run("identical is unchanged", func(t *testing.T) {
		r := linuxRoute("10.1.1.0/24", "ens4", "fc00::1")
		observed := route.State{r.Key(): r.Egress}
		plan := Diff([]route.ConcreteRoute{r}, observed)
		if !plan.Empty() {
			t.Errorf("re-applying identical state should be a no-op: %+v", plan)
		}
		if len(plan.Unchanged) != 1 {
			t.Errorf("unchanged = %d", len(plan.Unchanged))
		}
	})

	t.Run("changed egress is replace", func(t *testing.T) {
		old := linuxRoute("10.1.1.0/24", "ens4", "fc00::1")
		updated := linuxRoute("10.1.1.0/24", "ens4", "fc00::2")
		plan := Diff([]route.ConcreteRoute{updated}, route.State{old.Key(): old.Egress})
		if len(plan.ToRemove) != 1 || len(plan.ToAdd) != 1 {
			t.Fatalf("changed route should be removed then re-added: %+v", plan)
		}
		// The removal must carry the observed egress, not the desired one.
		if plan.ToRemove[0].Egress.SegmentList[0] != "fc00::1" {
			t.Errorf("removal egress = %+v, want observed", plan.ToRemove[0].Egress)
		}
		if plan.ToAdd[0].Egress.SegmentList[0] != "fc00::2" {
			t.Errorf("add egress = %+v, want desired", plan.ToAdd[0].Egress)
		}
	})

	t.Run("duplicate desired keys keep first occurrence", func(t *testing.T) {
		first := linuxRoute("10.1.1.0/24", "ens4", "fc00::1")
		second := linuxRoute("10.1.1.0/24", "ens4", "fc00::2")
		plan := Diff([]route.ConcreteRoute{first, second}, route.State{})
		if len(plan.ToAdd) != 1 {
			t.Fatalf("duplicate keys should collapse: %+v", plan.ToAdd)
		}
		if plan.ToAdd[0].Egress.SegmentList[0] != "fc00::1" {
			t.Errorf("first occurrence should win: %+v", plan.ToAdd[0])
		}
	})

	t.Run("foreign observed routes left alone", func(t *testing.T) {
		foreign := linuxRoute("192.168.0.0/16", "ens9", "fc00::9")
		plan := Diff([]route.ConcreteRoute{linuxRoute("10.1.1.0/24", "ens4", "fc00::1")},
			route.State{foreign.Key(): foreign.Egress})
		if len(plan.ToRemove) != 0 {
			t.Errorf("diff must never remove routes it does not own: %+v", plan.ToRemove)
		}
	})
}

func TestDiffDeletion(t *testing.T) {
	installed := linuxRoute("10.1.1.0/24", "ens4", "fc00::1")
	observed := route.State{installed.Key(): installed.Egress}

	t.Run("installed identity is removed with observed egress", func(t *testing.T) {
		id := linuxRoute("10.1.1.0/24", "", "")
		id.Egress = route.Egress{}
		plan := DiffDeletion([]route.ConcreteRoute{id}, observed)
		if len(plan.ToRemove) != 1 {
			t.Fatalf("plan = %+v", plan)
		}
		if plan.ToRemove[0].Egress.Interface != "ens4" {
			t.Errorf("removal should carry observed egress: %+v", plan.ToRemove[0].Egress)
		}
	})

	t.Run("never-applied identity is a no-op", func(t *testing.T) {
		id := linuxRoute("10.9.9.0/24", "", "")
		plan := DiffDeletion([]route.ConcreteRoute{id}, observed)
		if !plan.Empty() {
			t.Errorf("deleting a never-applied route should plan nothing: %+v", plan)
		}
	})
}

func TestApply(t *testing.T) {
	t.Run("removals run before additions", func(t *testing.T) {
		backend := dataplane.NewFake()
		old := linuxRoute("10.1.1.0/24", "ens4", "fc00::1")
		updated := linuxRoute("10.1.1.0/24", "ens4", "fc00::2")
		backend.EnsureRoute(context.Background(), old)

		plan := Diff([]route.ConcreteRoute{updated}, mustObserve(t, backend))
		result := New(backend).Apply(context.Background(), plan)
		if result.State != StateApplied {
			t.Fatalf("state = %s, failures: %+v", result.State, result.Failed)
		}

		ops := backend.Ops()[1:] // skip the setup add
		if len(ops) != 2 || !strings.HasPrefix(ops[0], "remove ") || !strings.HasPrefix(ops[1], "add ") {
			t.Errorf("ops = %v, want remove before add", ops)
		}
		state := backend.State()
		if got := state[updated.Key()]; !got.Equal(updated.Egress) {
			t.Errorf("final state = %+v", got)
		}
	})

	t.Run("partial failure continues", func(t *testing.T) {
		backend := dataplane.NewFake()
		bad := linuxRoute("10.1.1.0/24", "ens4", "fc00::1")
		good := linuxRoute("10.1.2.0/24", "ens4", "fc00::2")
		backend.FailOn(bad.Key())

		plan := Diff([]route.ConcreteRoute{bad, good}, route.State{})
		result := New(backend).Apply(context.Background(), plan)

		if result.State != StatePartiallyFailed {
			t.Errorf("state = %s", result.State)
		}
		if result.Added != 1 || len(result.Failed) != 1 {
			t.Errorf("added=%d failed=%d", result.Added, len(result.Failed))
		}
		if result.Failed[0].Operation != "add" {
			t.Errorf("failed op = %s", result.Failed[0].Operation)
		}
		if !errors.Is(result.Err(), util.ErrBackendFailed) {
			t.Errorf("Err() should unwrap to ErrBackendFailed: %v", result.Err())
		}
		if _, ok := backend.State()[good.Key()]; !ok {
			t.Error("the good route should still be installed")
		}
	})

	t.Run("cancellation stops new operations", func(t *testing.T) {
		backend := dataplane.NewFake()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		plan := Diff([]route.ConcreteRoute{linuxRoute("10.1.1.0/24", "ens4", "fc00::1")}, route.State{})
		result := New(backend).Apply(ctx, plan)
		if result.Added != 0 {
			t.Errorf("added = %d after cancellation", result.Added)
		}
		if len(backend.Ops()) != 0 {
			t.Errorf("no backend calls expected, got %v", backend.Ops())
		}
	})

	t.Run("empty plan applies cleanly", func(t *testing.T) {
		result := New(dataplane.NewFake()).Apply(context.Background(), Plan{})
		if result.State != StateApplied || result.Err() != nil {
			t.Errorf("result = %+v", result)
		}
	})
}

func TestLockTable(t *testing.T) {
	unlock := LockTable(spec.PlatformLinux, 0)
	locked := make(chan struct{})
	go func() {
		u := LockTable(spec.PlatformLinux, 0)
		close(locked)
		u()
	}()

	select {
	case <-locked:
		t.Fatal("second LockTable should block while held")
	default:
	}
	unlock()
	<-locked

	// Different tables do not contend.
	u1 := LockTable(spec.PlatformLinux, 1)
	u2 := LockTable(spec.PlatformLinux, 2)
	u1()
	u2()
}

func mustObserve(t *testing.T, backend dataplane.Programmer) route.State {
	t.Helper()
	observed, err := backend.Observe(context.Background(), []uint32{0})
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	return observed
}
