package dataplane

import (
	"context"
	"fmt"
	"sync"

	"github.com/jalapeno-sdn/srctl/pkg/route"
)

// Fake is an in-memory Programmer for tests: deterministic reconciliation
// without a live kernel or VPP instance.
type Fake struct {
	mu     sync.Mutex
	routes route.State
	failOn map[route.Key]bool
	ops    []string
}

// NewFake creates an empty fake backend.
func NewFake() *Fake {
	return &Fake{
		routes: make(route.State),
		failOn: make(map[route.Key]bool),
	}
}

// FailOn makes every operation on key return an error.
func (f *Fake) FailOn(key route.Key) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[key] = true
}

// Ops returns the recorded operations in order ("add <key>", "remove <key>").
func (f *Fake) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

// State returns a copy of the installed routes.
func (f *Fake) State() route.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(route.State, len(f.routes))
	for k, v := range f.routes {
		out[k] = v
	}
	return out
}

func (f *Fake) EnsureRoute(ctx context.Context, r route.ConcreteRoute) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := r.Key()
	f.ops = append(f.ops, "add "+key.String())
	if f.failOn[key] {
		return fmt.Errorf("injected failure for %s", key)
	}
	f.routes[key] = r.Egress
	return nil
}

func (f *Fake) RemoveRoute(ctx context.Context, r route.ConcreteRoute) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := r.Key()
	f.ops = append(f.ops, "remove "+key.String())
	if f.failOn[key] {
		return fmt.Errorf("injected failure for %s", key)
	}
	delete(f.routes, key)
	return nil
}

func (f *Fake) Observe(ctx context.Context, tables []uint32) (route.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[uint32]bool, len(tables))
	for _, t := range tables {
		wanted[t] = true
	}
	out := make(route.State)
	for k, v := range f.routes {
		if wanted[k.Table] {
			out[k] = v
		}
	}
	return out, nil
}

func (f *Fake) Close() error {
	return nil
}
