package authz

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/policy"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordDecision(resource, action string, allowed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	result := "deny"
	if allowed {
		result = "allow"
	}
	r.counts[resource+"/"+action+"/"+result]++
}

func principal(role domain.Role, region string) domain.Principal {
	return domain.Principal{ID: "p-" + string(role), Role: role, Region: region, Active: true}
}

func newEngine() *Engine {
	return NewEngine(policy.NewStore(nil), nil)
}

func TestCan_DefaultDeny(t *testing.T) {
	engine := newEngine()

	assert.False(t, engine.Can(principal(domain.RoleTechnician, "Amhara"), policy.ResourceUsers, policy.ActionCreate))
	assert.False(t, engine.Can(principal(domain.Role("wizard"), "Amhara"), policy.ResourceComplaints, policy.ActionRead))
	assert.False(t, engine.Can(principal(domain.RoleAdmin, ""), policy.Resource("billing"), policy.ActionRead))
	assert.False(t, engine.Can(principal(domain.RoleAdmin, ""), policy.ResourceComplaints, policy.Action("approve")))
	assert.True(t, engine.Can(principal(domain.RoleAdmin, ""), policy.ResourceSettings, policy.ActionUpdate))
}

func TestCan_InactivePrincipalDeniedEverything(t *testing.T) {
	engine := newEngine()
	admin := principal(domain.RoleAdmin, "Amhara")
	admin.Active = false

	for _, res := range policy.Resources {
		for _, action := range []policy.Action{policy.ActionCreate, policy.ActionRead, policy.ActionUpdate, policy.ActionDelete} {
			assert.False(t, engine.Can(admin, res, action))
		}
	}
	assert.True(t, engine.AccessibleRegions(admin).Empty())
	assert.Empty(t, engine.Capabilities(admin))
	assert.Equal(t, "principal is inactive", engine.Authorize(admin, policy.ResourceComplaints, policy.ActionRead, "").Reason)
}

func TestAuthorize_RegionComposition(t *testing.T) {
	engine := newEngine()
	manager := principal(domain.RoleManager, "Amhara")

	inRegion := engine.Authorize(manager, policy.ResourceComplaints, policy.ActionUpdate, "Amhara")
	assert.True(t, inRegion.Allowed)
	assert.NoError(t, inRegion.Err())

	caseFolded := engine.Authorize(manager, policy.ResourceComplaints, policy.ActionUpdate, " amhara ")
	assert.True(t, caseFolded.Allowed)

	outOfRegion := engine.Authorize(manager, policy.ResourceComplaints, policy.ActionUpdate, "Oromia")
	assert.False(t, outOfRegion.Allowed)
	assert.Contains(t, outOfRegion.Reason, "Oromia")
	assert.True(t, apperrors.HasCode(outOfRegion.Err(), apperrors.CodePermissionDenied))

	// call attendants see every region
	attendant := principal(domain.RoleCallAttendant, "Addis Ababa")
	assert.True(t, engine.Authorize(attendant, policy.ResourceComplaints, policy.ActionUpdate, "Oromia").Allowed)

	// the CRUD check still applies in region
	tech := principal(domain.RoleTechnician, "Amhara")
	assert.False(t, engine.Authorize(tech, policy.ResourceComplaints, policy.ActionCreate, "Amhara").Allowed)
}

func TestAuthorize_BlankRegionIsCRUDOnly(t *testing.T) {
	engine := newEngine()
	tech := principal(domain.RoleTechnician, "Amhara")
	decision := engine.Authorize(tech, policy.ResourceComplaints, policy.ActionRead, "")
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(1), decision.PolicyVersion)
}

func TestAuthorizeInstance_BlankRegionNeedsFullVisibility(t *testing.T) {
	engine := newEngine()

	for _, role := range []domain.Role{domain.RoleManager, domain.RoleForeman, domain.RoleTechnician} {
		decision := engine.AuthorizeInstance(principal(role, "Amhara"), policy.ResourceComplaints, policy.ActionRead, "")
		assert.False(t, decision.Allowed, role)
		assert.Contains(t, decision.Reason, "no region")
	}
	assert.True(t, engine.AuthorizeInstance(principal(domain.RoleAdmin, "Amhara"), policy.ResourceComplaints, policy.ActionRead, "").Allowed)
	assert.True(t, engine.AuthorizeInstance(principal(domain.RoleCallAttendant, ""), policy.ResourceComplaints, policy.ActionRead, "").Allowed)

	inRegion := engine.AuthorizeInstance(principal(domain.RoleManager, "Amhara"), policy.ResourceComplaints, policy.ActionUpdate, "amhara")
	assert.True(t, inRegion.Allowed)
}

func TestAccessibleRegions(t *testing.T) {
	engine := newEngine()
	assert.True(t, engine.AccessibleRegions(principal(domain.RoleAdmin, "")).All())

	regions := engine.AccessibleRegions(principal(domain.RoleForeman, "oromia"))
	assert.False(t, regions.All())
	assert.Equal(t, []string{"Oromia"}, regions.List())

	assert.True(t, engine.AccessibleRegions(principal(domain.RoleTechnician, "")).Empty())
}

func TestFilterByRegion(t *testing.T) {
	engine := newEngine()
	complaints := []domain.Complaint{
		{ID: "1", Region: "Amhara"},
		{ID: "2", Region: "Oromia"},
		{ID: "3", Region: "AMHARA"},
		{ID: "4", Region: ""},
	}

	visible := FilterByRegion(engine, principal(domain.RoleManager, "Amhara"), complaints)
	ids := make([]string, 0, len(visible))
	for _, c := range visible {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"1", "3"}, ids)

	assert.Len(t, FilterByRegion(engine, principal(domain.RoleAdmin, ""), complaints), 4)

	inactive := principal(domain.RoleAdmin, "")
	inactive.Active = false
	assert.Empty(t, FilterByRegion(engine, inactive, complaints))
}

func TestCapabilities(t *testing.T) {
	engine := newEngine()
	assert.True(t, engine.Capabilities(principal(domain.RoleManager, "Amhara")).Has(policy.CapExportData))
	assert.False(t, engine.Capabilities(principal(domain.RoleCallAttendant, "")).Has(policy.CapSetHighPriority))
}

func TestDecide_BindsOneSnapshot(t *testing.T) {
	store := policy.NewStore(nil)
	engine := NewEngine(store, nil)
	tech := principal(domain.RoleTechnician, "Amhara")

	bound := engine.Decide(nil)
	next, err := store.Current().WithPermissions(domain.RoleTechnician, policy.ResourceUsers, policy.Permissions{Create: true}, "admin-1", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Replace(next))

	assert.False(t, bound.Can(tech, policy.ResourceUsers, policy.ActionCreate))
	assert.Equal(t, int64(1), bound.PolicyVersion())
	assert.True(t, engine.Can(tech, policy.ResourceUsers, policy.ActionCreate))
}

func TestDecisionsAreRecorded(t *testing.T) {
	recorder := &countingRecorder{}
	engine := NewEngine(policy.NewStore(nil), recorder)

	engine.Can(principal(domain.RoleAdmin, ""), policy.ResourceUsers, policy.ActionRead)
	engine.Authorize(principal(domain.RoleTechnician, "Amhara"), policy.ResourceUsers, policy.ActionCreate, "")

	assert.Equal(t, 1, recorder.counts["users/read/allow"])
	assert.Equal(t, 1, recorder.counts["users/create/deny"])
}
