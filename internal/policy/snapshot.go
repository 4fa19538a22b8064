package policy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// Snapshot is one immutable version of the access policy. All accessors return copies so a
// snapshot handed to a reader can never change underneath it.
type Snapshot struct {
	version      int64
	matrix       map[domain.Role]map[Resource]Permissions
	visibility   map[domain.Role]Visibility
	capabilities map[domain.Role]CapabilitySet
	updatedAt    time.Time
	updatedBy    string
}

// Document is the serialized form of a snapshot, used for persistence and the admin API.
type Document struct {
	Version      int64                                    `json:"version"`
	Matrix       map[domain.Role]map[Resource]Permissions `json:"matrix"`
	Visibility   map[domain.Role]Visibility               `json:"visibility"`
	Capabilities map[domain.Role][]Capability             `json:"capabilities"`
	UpdatedAt    time.Time                                `json:"updatedAt"`
	UpdatedBy    string                                   `json:"updatedBy"`
}

func newSnapshot(version int64, matrix map[domain.Role]map[Resource]Permissions, visibility map[domain.Role]Visibility, capabilities map[domain.Role][]Capability, at time.Time, by string) *Snapshot {
	s := &Snapshot{
		version:      version,
		matrix:       make(map[domain.Role]map[Resource]Permissions, len(matrix)),
		visibility:   make(map[domain.Role]Visibility, len(visibility)),
		capabilities: make(map[domain.Role]CapabilitySet, len(capabilities)),
		updatedAt:    at.UTC(),
		updatedBy:    by,
	}
	for role, perResource := range matrix {
		copied := make(map[Resource]Permissions, len(perResource))
		for res, perms := range perResource {
			copied[res] = perms
		}
		s.matrix[role] = copied
	}
	for role, vis := range visibility {
		s.visibility[role] = vis
	}
	for role, caps := range capabilities {
		set := make(CapabilitySet, len(caps))
		for _, c := range caps {
			set[c] = true
		}
		s.capabilities[role] = set
	}
	return s
}

// Version is the monotonically increasing policy version.
func (s *Snapshot) Version() int64 { return s.version }

// UpdatedAt is when this version was produced.
func (s *Snapshot) UpdatedAt() time.Time { return s.updatedAt }

// UpdatedBy identifies who produced this version.
func (s *Snapshot) UpdatedBy() string { return s.updatedBy }

// Permissions returns the grant for role on resource. A missing entry is reported as
// not found and must be treated as deny.
func (s *Snapshot) Permissions(role domain.Role, resource Resource) (Permissions, bool) {
	perResource, ok := s.matrix[role]
	if !ok {
		return Permissions{}, false
	}
	perms, ok := perResource[resource]
	return perms, ok
}

// Visibility returns the region visibility of role; unknown roles only see their own region.
func (s *Snapshot) Visibility(role domain.Role) Visibility {
	if vis, ok := s.visibility[role]; ok {
		return vis
	}
	return VisibilityOwn
}

// Capabilities returns a copy of the capability set granted to role.
func (s *Snapshot) Capabilities(role domain.Role) CapabilitySet {
	out := CapabilitySet{}
	for c, granted := range s.capabilities[role] {
		if granted {
			out[c] = true
		}
	}
	return out
}

// WithPermissions returns a new snapshot, one version ahead, with the grant for role on
// resource replaced. The receiver is left untouched.
func (s *Snapshot) WithPermissions(role domain.Role, resource Resource, perms Permissions, by string, at time.Time) (*Snapshot, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if !resource.Valid() {
		return nil, fmt.Errorf("unknown resource %q", resource)
	}
	doc := s.Document()
	if doc.Matrix[role] == nil {
		doc.Matrix[role] = map[Resource]Permissions{}
	}
	doc.Matrix[role][resource] = perms
	return newSnapshot(s.version+1, doc.Matrix, doc.Visibility, doc.Capabilities, at, by), nil
}

// Document renders the snapshot into its serializable form.
func (s *Snapshot) Document() Document {
	doc := Document{
		Version:      s.version,
		Matrix:       make(map[domain.Role]map[Resource]Permissions, len(s.matrix)),
		Visibility:   make(map[domain.Role]Visibility, len(s.visibility)),
		Capabilities: make(map[domain.Role][]Capability, len(s.capabilities)),
		UpdatedAt:    s.updatedAt,
		UpdatedBy:    s.updatedBy,
	}
	for role, perResource := range s.matrix {
		copied := make(map[Resource]Permissions, len(perResource))
		for res, perms := range perResource {
			copied[res] = perms
		}
		doc.Matrix[role] = copied
	}
	for role, vis := range s.visibility {
		doc.Visibility[role] = vis
	}
	for role, set := range s.capabilities {
		doc.Capabilities[role] = set.List()
	}
	return doc
}

// MarshalJSON implements json.Marshaler.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Document())
}

// FromDocument validates a document and builds a snapshot from it.
func FromDocument(doc Document) (*Snapshot, error) {
	if doc.Version <= 0 {
		return nil, fmt.Errorf("policy version must be positive, got %d", doc.Version)
	}
	for role, perResource := range doc.Matrix {
		if !role.Valid() {
			return nil, fmt.Errorf("unknown role %q", role)
		}
		for res := range perResource {
			if !res.Valid() {
				return nil, fmt.Errorf("unknown resource %q", res)
			}
		}
	}
	for role, vis := range doc.Visibility {
		if vis != VisibilityAll && vis != VisibilityOwn {
			return nil, fmt.Errorf("invalid visibility %q for role %q", vis, role)
		}
	}
	return newSnapshot(doc.Version, doc.Matrix, doc.Visibility, doc.Capabilities, doc.UpdatedAt, doc.UpdatedBy), nil
}

// Decode parses a persisted snapshot.
func Decode(data []byte) (*Snapshot, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode policy snapshot: %w", err)
	}
	return FromDocument(doc)
}
