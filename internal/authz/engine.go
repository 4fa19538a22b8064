// Package authz answers "may this principal do this action on this resource in this region"
// against the policy snapshot in effect.
package authz

import (
	"fmt"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/policy"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// SnapshotSource yields the policy snapshot in effect.
type SnapshotSource interface {
	Current() *policy.Snapshot
}

// DecisionRecorder counts decisions; implemented by observability.Metrics.
type DecisionRecorder interface {
	RecordDecision(resource, action string, allowed bool)
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed       bool
	Reason        string
	Resource      policy.Resource
	Action        policy.Action
	PolicyVersion int64
}

// Err returns nil for an allowed decision and a permission denied error otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperrors.NewPermissionDenied(d.Reason, map[string]any{
		"resource":       string(d.Resource),
		"action":         string(d.Action),
		"policy_version": d.PolicyVersion,
	})
}

// Engine evaluates principals against the current policy.
type Engine struct {
	source   SnapshotSource
	recorder DecisionRecorder
}

// NewEngine builds an engine. recorder may be nil.
func NewEngine(source SnapshotSource, recorder DecisionRecorder) *Engine {
	return &Engine{source: source, recorder: recorder}
}

// Decide binds an evaluator to one snapshot so a multi-step operation sees a single policy
// version. A nil snapshot binds to the current one.
func (e *Engine) Decide(snapshot *policy.Snapshot) *Evaluator {
	if snapshot == nil {
		snapshot = e.source.Current()
	}
	return &Evaluator{snapshot: snapshot, recorder: e.recorder}
}

// Can reports whether p holds action on resource, ignoring regions.
func (e *Engine) Can(p domain.Principal, resource policy.Resource, action policy.Action) bool {
	return e.Decide(nil).Can(p, resource, action)
}

// AccessibleRegions returns the regions p may see.
func (e *Engine) AccessibleRegions(p domain.Principal) RegionSet {
	return e.Decide(nil).AccessibleRegions(p)
}

// Authorize combines the CRUD check with an optional region filter. An empty region
// means a collection request and only the CRUD check applies.
func (e *Engine) Authorize(p domain.Principal, resource policy.Resource, action policy.Action, region string) Decision {
	return e.Decide(nil).Authorize(p, resource, action, region)
}

// AuthorizeInstance checks an existing entity stored under region.
func (e *Engine) AuthorizeInstance(p domain.Principal, resource policy.Resource, action policy.Action, region string) Decision {
	return e.Decide(nil).AuthorizeInstance(p, resource, action, region)
}

// Capabilities resolves the named capabilities of p.
func (e *Engine) Capabilities(p domain.Principal) policy.CapabilitySet {
	return e.Decide(nil).Capabilities(p)
}

// Evaluator answers questions against a single snapshot.
type Evaluator struct {
	snapshot *policy.Snapshot
	recorder DecisionRecorder
}

// PolicyVersion is the version of the bound snapshot.
func (ev *Evaluator) PolicyVersion() int64 {
	return ev.snapshot.Version()
}

// Can reports whether p holds action on resource. Inactive principals, unknown roles,
// unknown resources, unknown actions and missing entries are all denied.
func (ev *Evaluator) Can(p domain.Principal, resource policy.Resource, action policy.Action) bool {
	allowed := ev.can(p, resource, action)
	ev.record(resource, action, allowed)
	return allowed
}

func (ev *Evaluator) can(p domain.Principal, resource policy.Resource, action policy.Action) bool {
	if !p.Active || !p.Role.Valid() {
		return false
	}
	perms, ok := ev.snapshot.Permissions(p.Role, resource)
	if !ok {
		return false
	}
	return perms.Allows(action)
}

// AccessibleRegions returns every region for roles with full visibility and only the
// principal's own region otherwise. Inactive principals see nothing.
func (ev *Evaluator) AccessibleRegions(p domain.Principal) RegionSet {
	if !p.Active || !p.Role.Valid() {
		return Regions()
	}
	if ev.snapshot.Visibility(p.Role) == policy.VisibilityAll {
		return AllRegions()
	}
	return Regions(p.Region)
}

// Authorize returns an allow or a deny with the reason. A blank region skips the
// region check; use AuthorizeInstance for stored entities.
func (ev *Evaluator) Authorize(p domain.Principal, resource policy.Resource, action policy.Action, region string) Decision {
	return ev.authorize(p, resource, action, region, region != "")
}

// AuthorizeInstance always checks region against the principal's scope, so an entity
// with a blank region is only reachable by roles that see every region.
func (ev *Evaluator) AuthorizeInstance(p domain.Principal, resource policy.Resource, action policy.Action, region string) Decision {
	return ev.authorize(p, resource, action, region, true)
}

func (ev *Evaluator) authorize(p domain.Principal, resource policy.Resource, action policy.Action, region string, scoped bool) Decision {
	decision := Decision{Resource: resource, Action: action, PolicyVersion: ev.snapshot.Version()}
	switch {
	case !p.Active:
		decision.Reason = "principal is inactive"
	case !ev.can(p, resource, action):
		decision.Reason = fmt.Sprintf("role %s may not %s %s", p.Role, action, resource)
	case scoped && !ev.AccessibleRegions(p).Contains(region):
		if region == "" {
			decision.Reason = fmt.Sprintf("record has no region and role %s is region scoped", p.Role)
		} else {
			decision.Reason = fmt.Sprintf("region %s is outside the scope of role %s", region, p.Role)
		}
	default:
		decision.Allowed = true
	}
	ev.record(resource, action, decision.Allowed)
	return decision
}

// Capabilities resolves the capability set of p; inactive principals get none.
func (ev *Evaluator) Capabilities(p domain.Principal) policy.CapabilitySet {
	if !p.Active {
		return policy.CapabilitySet{}
	}
	return ev.snapshot.Capabilities(p.Role)
}

func (ev *Evaluator) record(resource policy.Resource, action policy.Action, allowed bool) {
	if ev.recorder == nil {
		return
	}
	ev.recorder.RecordDecision(string(resource), string(action), allowed)
}
