// Package engine orchestrates one PathRequest end to end: query upstream,
// select paths, compile concrete routes, and reconcile them against the
// dataplane.
//
// Route groups (VRF × address family) are independent units of work and are
// evaluated concurrently on a bounded worker pool. Upstream queries are the
// only suspension points and honor the caller's context; cancelling the
// request aborts before any Apply. Apply itself is serialized per
// (platform, table id). Failures are isolated to the route or route group
// that caused them — only validation aborts the whole invocation.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/cilium/workerpool"

	"github.com/jalapeno-sdn/srctl/pkg/dataplane"
	"github.com/jalapeno-sdn/srctl/pkg/jalapeno"
	"github.com/jalapeno-sdn/srctl/pkg/reconcile"
	"github.com/jalapeno-sdn/srctl/pkg/route"
	"github.com/jalapeno-sdn/srctl/pkg/selector"
	"github.com/jalapeno-sdn/srctl/pkg/spec"
	"github.com/jalapeno-sdn/srctl/pkg/statestore"
	"github.com/jalapeno-sdn/srctl/pkg/util"
)

// Exit codes for the CLI: validation never touches the network, partial
// backend failure means some routes were not installed, upstream
// unavailability means the query side failed.
const (
	ExitOK         = 0
	ExitUsage      = 1
	ExitValidation = 2
	ExitBackend    = 3
	ExitUpstream   = 4
)

const (
	defaultConcurrency = 4
	defaultQueryLimit  = 32
)

// Config wires the engine's collaborators. NewBackend is injected so tests
// can substitute a fake programmer.
type Config struct {
	API         *jalapeno.Client
	NewBackend  func(platform spec.Platform) (dataplane.Programmer, error)
	Journal     *statestore.Store // optional applied-route journal
	Concurrency int               // route-group worker pool size
	QueryLimit  int               // candidates requested per graph query
}

// Engine runs PathRequests.
type Engine struct {
	api         *jalapeno.Client
	newBackend  func(platform spec.Platform) (dataplane.Programmer, error)
	journal     *statestore.Store
	concurrency int
	queryLimit  int
}

// New creates an engine.
func New(cfg Config) *Engine {
	e := &Engine{
		api:         cfg.API,
		newBackend:  cfg.NewBackend,
		journal:     cfg.Journal,
		concurrency: cfg.Concurrency,
		queryLimit:  cfg.QueryLimit,
	}
	if e.newBackend == nil {
		e.newBackend = func(platform spec.Platform) (dataplane.Programmer, error) {
			return dataplane.New(platform, dataplane.Options{})
		}
	}
	if e.concurrency <= 0 {
		e.concurrency = defaultConcurrency
	}
	if e.queryLimit <= 0 {
		e.queryLimit = defaultQueryLimit
	}
	return e
}

// RouteError is a per-route query or compile failure.
type RouteError struct {
	Name string
	Err  error
}

// GroupOutcome is the result of one route group.
type GroupOutcome struct {
	Group       spec.Group
	Desired     []route.ConcreteRoute
	RouteErrors []RouteError
	Plan        reconcile.Plan
	Result      *reconcile.Result // nil when apply was skipped (cancelled)
}

// Scope names the group for reports ("defaultVrf/ipv4", "cust-a/ipv6").
func (g *GroupOutcome) Scope() string {
	name := g.Group.VRFName
	if name == "" {
		name = "defaultVrf"
	}
	return fmt.Sprintf("%s/%s", name, g.Group.Family)
}

// Report aggregates a whole invocation.
type Report struct {
	Name     string
	Platform spec.Platform
	Groups   []*GroupOutcome
}

// ExitCode maps the report onto the CLI exit codes. Backend failures win
// over upstream failures, which win over compile-stage spec errors.
func (r *Report) ExitCode() int {
	code := ExitOK
	for _, g := range r.Groups {
		if g.Result != nil && len(g.Result.Failed) > 0 {
			return ExitBackend
		}
		for _, re := range g.RouteErrors {
			if isUpstreamKind(re.Err) {
				code = ExitUpstream
			} else if code == ExitOK {
				code = ExitValidation
			}
		}
	}
	return code
}

// ExitFor classifies a top-level error onto the exit codes: validation
// failures never reach the network, upstream failures mean no query result,
// backend failures mean the dataplane rejected an operation.
func ExitFor(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, util.ErrValidationFailed), errors.Is(err, util.ErrInvalidParameter):
		return ExitValidation
	case errors.Is(err, util.ErrBackendFailed):
		return ExitBackend
	case isUpstreamKind(err):
		return ExitUpstream
	}
	return ExitUsage
}

func isUpstreamKind(err error) bool {
	return errors.Is(err, util.ErrUpstreamUnavailable) ||
		errors.Is(err, util.ErrUnknownNode) ||
		errors.Is(err, util.ErrGraphNotFound) ||
		errors.Is(err, util.ErrNoMatch)
}

// Apply compiles and reconciles the request, installing or updating routes.
func (e *Engine) Apply(ctx context.Context, f *spec.File) (*Report, error) {
	if err := f.Validate(false); err != nil {
		return nil, err
	}
	return e.run(ctx, f, false)
}

// Delete removes the routes a request names. Graph routes are identified by
// destination_prefix alone; L3VPN routes are enumerated with the same
// upstream query apply uses, except when an exact-match prefix already pins
// the single identity.
func (e *Engine) Delete(ctx context.Context, f *spec.File) (*Report, error) {
	if err := f.Validate(true); err != nil {
		return nil, err
	}
	return e.run(ctx, f, true)
}

func (e *Engine) run(ctx context.Context, f *spec.File, forDelete bool) (*Report, error) {
	platform := f.Spec.Platform
	report := &Report{Name: f.Metadata.Name, Platform: platform}
	groups := f.Spec.Groups()
	if len(groups) == 0 {
		return report, nil
	}
	for _, g := range groups {
		report.Groups = append(report.Groups, &GroupOutcome{Group: g})
	}

	// Phase 1: query, select, and compile every group concurrently.
	// No dataplane mutation happens here.
	wp := workerpool.New(e.concurrency)
	for _, outcome := range report.Groups {
		outcome := outcome
		err := wp.Submit(outcome.Scope(), func(_ context.Context) error {
			e.compileGroup(ctx, platform, outcome, forDelete)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scheduling %s: %w", outcome.Scope(), err)
		}
	}
	if _, err := wp.Drain(); err != nil {
		wp.Close()
		return nil, err
	}
	wp.Close()

	// Cancellation before Apply leaves the dataplane untouched.
	if err := ctx.Err(); err != nil {
		return report, err
	}

	backend, err := e.newBackend(platform)
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", platform, err)
	}
	defer backend.Close()

	// Phase 2: reconcile each group against observed state, serialized per
	// (platform, table).
	rec := reconcile.New(backend)
	for _, outcome := range report.Groups {
		if ctx.Err() != nil {
			break
		}
		e.reconcileGroup(ctx, rec, backend, platform, outcome, forDelete)
	}
	return report, nil
}

// compileGroup resolves one route group into desired concrete routes (or
// deletion identities). Per-route failures are recorded and do not abort
// sibling routes.
func (e *Engine) compileGroup(ctx context.Context, platform spec.Platform, outcome *GroupOutcome, forDelete bool) {
	g := outcome.Group
	vrf := route.VRFContext{Platform: platform, Table: g.TableID, Family: g.Family}
	vrfName := g.VRFName
	if vrfName == "" {
		vrfName = "defaultVrf"
	}
	log := util.WithGroup(vrfName, string(g.Family))

	for _, r := range g.Routes {
		sel, err := e.resolveRoute(ctx, r, g, forDelete)
		if err != nil {
			outcome.RouteErrors = append(outcome.RouteErrors, RouteError{Name: r.Name, Err: err})
			log.WithField("route", r.Name).Warnf("query failed: %v", err)
			continue
		}

		var compiled []route.ConcreteRoute
		if forDelete {
			compiled, err = route.CompileDeletion(r, sel, vrf)
		} else {
			compiled, err = route.Compile(r, sel, vrf)
		}
		if err != nil {
			outcome.RouteErrors = append(outcome.RouteErrors, RouteError{Name: r.Name, Err: err})
			log.WithField("route", r.Name).Warnf("compile failed: %v", err)
			continue
		}
		if len(compiled) == 0 && !forDelete {
			log.WithField("route", r.Name).Info("no routes compiled (empty selection)")
		}
		outcome.Desired = append(outcome.Desired, compiled...)
	}
}

// resolveRoute performs the upstream queries a route needs. Graph-variant
// deletions skip upstream entirely. L3VPN deletions re-run the same query
// apply used, so the removal identities cover exactly what apply installed;
// only an exact-match prefix pins the identity without a query.
func (e *Engine) resolveRoute(ctx context.Context, r *spec.RouteSpec, g spec.Group, forDelete bool) (route.Selection, error) {
	switch r.Variant() {
	case spec.VariantL3VPN:
		if forDelete && r.Prefix != "" && r.ExactMatch {
			return route.Selection{}, nil
		}
		prefixes, err := e.api.QueryL3VPN(ctx, jalapeno.L3VPNQuery{
			RouteTarget: r.RouteTarget,
			Collection:  r.CollectionOrDefault(g.Family),
			Prefix:      r.Prefix,
			ExactMatch:  r.ExactMatch,
		})
		if err != nil {
			return route.Selection{}, err
		}
		return route.Selection{Prefixes: prefixes}, nil

	case spec.VariantGraphPath:
		if forDelete {
			return route.Selection{}, nil
		}
		candidates, err := e.api.QueryGraphPath(ctx, jalapeno.GraphQuery{
			Graph:       r.Graph,
			Source:      r.Source,
			Destination: r.Destination,
			Metric:      r.Metric,
			Direction:   r.DirectionOrDefault(),
			Limit:       1,
		})
		if err != nil {
			return route.Selection{}, err
		}
		paths, err := selector.Select(selector.Strategy{Type: selector.ShortestPath}, candidates)
		if err != nil {
			return route.Selection{}, err
		}
		return route.Selection{Paths: paths}, nil

	default:
		return route.Selection{}, fmt.Errorf("route '%s': exactly one of route_target or graph must be set", r.Name)
	}
}

// reconcileGroup diffs and applies one group under the table's
// mutual-exclusion scope.
func (e *Engine) reconcileGroup(ctx context.Context, rec *reconcile.Reconciler, backend dataplane.Programmer, platform spec.Platform, outcome *GroupOutcome, forDelete bool) {
	g := outcome.Group
	unlock := reconcile.LockTable(platform, g.TableID)
	defer unlock()

	observed, err := backend.Observe(ctx, []uint32{g.TableID})
	if err != nil {
		outcome.RouteErrors = append(outcome.RouteErrors, RouteError{Name: "*", Err: fmt.Errorf("%w: observing table %d: %v", util.ErrBackendFailed, g.TableID, err)})
		return
	}

	if forDelete {
		outcome.Plan = reconcile.DiffDeletion(outcome.Desired, observed)
	} else {
		outcome.Plan = reconcile.Diff(outcome.Desired, observed)
	}
	if outcome.Plan.Empty() {
		outcome.Result = &reconcile.Result{State: reconcile.StateApplied, Unchanged: len(outcome.Plan.Unchanged)}
		return
	}

	outcome.Result = rec.Apply(ctx, outcome.Plan)
	e.journalPlan(ctx, outcome)
}

// journalPlan records applied changes in the state store, best-effort.
func (e *Engine) journalPlan(ctx context.Context, outcome *GroupOutcome) {
	if e.journal == nil || outcome.Result == nil {
		return
	}
	failed := make(map[route.Key]bool, len(outcome.Result.Failed))
	for _, f := range outcome.Result.Failed {
		failed[f.Route.Key()] = true
	}
	for _, cr := range outcome.Plan.ToRemove {
		if failed[cr.Key()] {
			continue
		}
		if err := e.journal.RecordRemoved(ctx, cr.Key()); err != nil {
			util.Warnf("state store: recording removal of %s: %v", cr.Key(), err)
		}
	}
	for _, cr := range outcome.Plan.ToAdd {
		if failed[cr.Key()] {
			continue
		}
		if err := e.journal.RecordApplied(ctx, cr); err != nil {
			util.Warnf("state store: recording %s: %v", cr.Key(), err)
		}
	}
}

// GetPaths runs the selector only: query candidates and apply the strategy,
// with no dataplane interaction.
func (e *Engine) GetPaths(ctx context.Context, q jalapeno.GraphQuery, strat selector.Strategy) (selector.Result, error) {
	if q.Limit == 0 {
		q.Limit = e.queryLimit
	}
	candidates, err := e.api.QueryGraphPath(ctx, q)
	if err != nil {
		return nil, err
	}
	return selector.Select(strat, candidates)
}

// L3VPNRequest is the direct l3vpn get-routes operation, bypassing a full
// spec document.
type L3VPNRequest struct {
	RouteTarget       string
	Prefix            string
	ExactMatch        bool
	Collection        string
	Platform          spec.Platform
	TableID           uint32
	OutboundInterface string
	BSID              string
}

// QueryL3VPN returns the prefixes matching the request.
func (e *Engine) QueryL3VPN(ctx context.Context, req L3VPNRequest) ([]jalapeno.VPNPrefix, error) {
	collection := req.Collection
	if collection == "" {
		collection = "l3vpn_v4_prefix"
	}
	return e.api.QueryL3VPN(ctx, jalapeno.L3VPNQuery{
		RouteTarget: req.RouteTarget,
		Collection:  collection,
		Prefix:      req.Prefix,
		ExactMatch:  req.ExactMatch,
	})
}

// ApplyL3VPN applies the request by building an equivalent single-route
// PathRequest and running the normal pipeline.
func (e *Engine) ApplyL3VPN(ctx context.Context, req L3VPNRequest) (*Report, error) {
	f, err := l3vpnFile(req)
	if err != nil {
		return nil, err
	}
	return e.Apply(ctx, f)
}

func l3vpnFile(req L3VPNRequest) (*spec.File, error) {
	family := spec.FamilyIPv4
	if req.Collection == "l3vpn_v6_prefix" {
		family = spec.FamilyIPv6
	}
	routeSpec := &spec.RouteSpec{
		Name:              fmt.Sprintf("l3vpn-%s", req.RouteTarget),
		RouteTarget:       req.RouteTarget,
		Prefix:            req.Prefix,
		ExactMatch:        req.ExactMatch,
		Collection:        req.Collection,
		OutboundInterface: req.OutboundInterface,
		BSID:              req.BSID,
	}
	group := &spec.RouteGroup{Routes: []*spec.RouteSpec{routeSpec}}
	vrf := &spec.VRF{TableID: req.TableID}
	if family == spec.FamilyIPv6 {
		vrf.IPv6 = group
	} else {
		vrf.IPv4 = group
	}

	f := &spec.File{
		Kind:     spec.KindPathRequest,
		Metadata: spec.Metadata{Name: "l3vpn-get-routes"},
		Spec:     spec.Request{Platform: req.Platform},
	}
	if req.TableID == 0 {
		f.Spec.DefaultVRF = vrf
	} else {
		vrf.Name = fmt.Sprintf("table-%d", req.TableID)
		f.Spec.VRFs = []*spec.VRF{vrf}
	}
	return f, nil
}
