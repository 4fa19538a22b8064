// Package ids generates sortable identifiers for records created by this service.
package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ComplaintPrefix marks public intake references.
const ComplaintPrefix = "CMP-"

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier.
func New(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}

// ComplaintReference returns a customer facing complaint reference such as
// CMP-01HZX3J5Q2W8K9R7T6Y5V4B3N2.
func ComplaintReference(at time.Time) string {
	return ComplaintPrefix + New(at)
}

// IsComplaintReference reports whether ref has the shape ComplaintReference produces.
func IsComplaintReference(ref string) bool {
	if !strings.HasPrefix(ref, ComplaintPrefix) {
		return false
	}
	_, err := ulid.ParseStrict(strings.TrimPrefix(ref, ComplaintPrefix))
	return err == nil
}
