package canonical

import "github.com/spec-kit/complaint-service/internal/domain"

var (
	activityIDAliases      = []string{"ID", "id", "Activity ID", "activityId"}
	activityActionAliases  = []string{"Action", "action", "Type", "type"}
	activityDescAliases    = []string{"Description", "description", "Details", "details", "Message", "message"}
	activityActorAliases   = []string{"Actor ID", "actorId", "actor_id", "User ID", "userId"}
	activityRelatedAliases = []string{"Related Complaint ID", "relatedComplaintId", "related_complaint_id", "Complaint ID", "complaintId"}
	activityTimeAliases    = []string{"Timestamp", "timestamp", "occurredAt", "Created At", "createdAt"}
)

// NormalizeActivity canonicalises one activity feed row. Unreadable timestamps become zero.
func NormalizeActivity(raw Bag) domain.ActivityEntry {
	entry := domain.ActivityEntry{
		ID:                 raw.text(activityIDAliases...),
		Action:             raw.text(activityActionAliases...),
		Description:        raw.text(activityDescAliases...),
		ActorID:            raw.text(activityActorAliases...),
		RelatedComplaintID: raw.text(activityRelatedAliases...),
	}
	if val, ok := raw.lookup(activityTimeAliases...); ok {
		if ts, parsed := toTime(val); parsed {
			entry.OccurredAt = ts
		}
	}
	return entry
}
