package canonical

import (
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// NotesSeparator delimits notes inside the store's single notes cell.
const NotesSeparator = "\n"

var (
	complaintIDAliases   = []string{"ID", "id", "Complaint ID", "complaintId", "complaint_id"}
	titleAliases         = []string{"Title", "title", "Subject", "subject"}
	descriptionAliases   = []string{"Description", "description", "Details", "details"}
	categoryAliases      = []string{"Category", "category", "Type", "type"}
	regionAliases        = []string{"Region", "region"}
	priorityAliases      = []string{"Priority", "priority"}
	statusAliases        = []string{"Status", "status"}
	workClassAliases     = []string{"Work Classification", "workClassification", "work_classification", "Work Type", "workType"}
	updatedAtAliases     = []string{"Updated At", "updatedAt", "updated_at", "Last Updated"}
	resolvedAtAliases    = []string{"Resolved At", "resolvedAt", "resolved_at", "Date Resolved"}
	estimatedAliases     = []string{"Estimated Resolution", "estimatedResolution", "estimated_resolution"}
	assignedToAliases    = []string{"Assigned To", "assignedTo", "assigned_to"}
	assignedByAliases    = []string{"Assigned By", "assignedBy", "assigned_by"}
	createdByAliases     = []string{"Created By", "createdBy", "created_by"}
	updatedByAliases     = []string{"Updated By", "updatedBy", "updated_by"}
	notesAliases         = []string{"Notes", "notes"}
	attachmentsAliases   = []string{"Attachments", "attachments"}
	versionAliases       = []string{"Version", "version", "_version"}
	attachmentSeparators = ",\n"
)

// NormalizeComplaint canonicalises a complaint row. It never fails; defects are reported
// on the result.
func NormalizeComplaint(raw Bag) Result[domain.Complaint] {
	var issues issueList

	complaint := domain.Complaint{
		ID:                 raw.text(complaintIDAliases...),
		Title:              raw.text(titleAliases...),
		Description:        raw.text(descriptionAliases...),
		WorkClassification: raw.text(workClassAliases...),
		AssignedTo:         raw.text(assignedToAliases...),
		AssignedBy:         raw.text(assignedByAliases...),
		CreatedBy:          raw.text(createdByAliases...),
		UpdatedBy:          raw.text(updatedByAliases...),
	}
	complaint.Customer = customerRef(raw, &issues)

	complaint.Region = domain.CanonicalRegion(raw.text(regionAliases...))
	if complaint.Region == "" {
		complaint.Region = complaint.Customer.Region
	}

	complaint.Category, _ = ParseCategory(raw.text(categoryAliases...))
	complaint.Priority, _ = ParsePriority(raw.text(priorityAliases...))
	complaint.Status, _ = ParseStatus(raw.text(statusAliases...))

	complaint.CreatedAt = timeField(raw, "created_at", &issues, createdAtAliases...)
	complaint.UpdatedAt = timeField(raw, "updated_at", &issues, updatedAtAliases...)
	complaint.EstimatedResolution = optionalTime(raw, "estimated_resolution", &issues, estimatedAliases...)
	complaint.ResolvedAt = optionalTime(raw, "resolved_at", &issues, resolvedAtAliases...)
	enforceResolvedAt(&complaint, &issues)

	complaint.Notes = normalizeNotes(raw, &issues)
	if val, ok := raw.lookup(attachmentsAliases...); ok {
		complaint.Attachments = toList(val, attachmentSeparators)
	}
	if len(complaint.Attachments) == 0 {
		complaint.Attachments = nil
	}

	if val, ok := raw.lookup(versionAliases...); ok {
		num, isNum := toNumber(val)
		if !isNum || num < 0 {
			issues.add("version", IssueInvalidNumber, "version is not a non-negative number")
		} else {
			complaint.Version = int64(num)
		}
	}

	return Result[domain.Complaint]{Entity: complaint, Issues: issues}
}

// ComplaintAttributes renders a complaint as a store payload. Normalizing the output
// yields the same complaint.
func ComplaintAttributes(c domain.Complaint) Bag {
	bag := Bag{
		"id":                 c.ID,
		"customerId":         c.Customer.ID,
		"customerName":       c.Customer.Name,
		"customerEmail":      c.Customer.Email,
		"customerPhone":      c.Customer.Phone,
		"customerAddress":    c.Customer.Address,
		"customerRegion":     c.Customer.Region,
		"meterNumber":        c.Customer.MeterNumber,
		"accountNumber":      c.Customer.AccountNumber,
		"title":              c.Title,
		"description":        c.Description,
		"category":           string(c.Category),
		"region":             c.Region,
		"priority":           string(c.Priority),
		"status":             string(c.Status),
		"workClassification": c.WorkClassification,
		"assignedTo":         c.AssignedTo,
		"assignedBy":         c.AssignedBy,
		"createdBy":          c.CreatedBy,
		"updatedBy":          c.UpdatedBy,
		"notes":              strings.Join(c.Notes, NotesSeparator),
		"attachments":        append([]string(nil), c.Attachments...),
		"version":            strconv.FormatInt(c.Version, 10),
	}
	if ts := formatTime(c.CreatedAt); ts != "" {
		bag["createdAt"] = ts
	}
	if ts := formatTime(c.UpdatedAt); ts != "" {
		bag["updatedAt"] = ts
	}
	if c.ResolvedAt != nil {
		if ts := formatTime(*c.ResolvedAt); ts != "" {
			bag["resolvedAt"] = ts
		}
	}
	if c.EstimatedResolution != nil {
		if ts := formatTime(*c.EstimatedResolution); ts != "" {
			bag["estimatedResolution"] = ts
		}
	}
	return bag
}

// CleanNote collapses whitespace so a note can never be split by NotesSeparator.
func CleanNote(note string) string {
	return strings.Join(strings.Fields(note), " ")
}

func normalizeNotes(raw Bag, issues *issueList) []string {
	val, ok := raw.lookup(notesAliases...)
	if !ok {
		return nil
	}
	if s, isString := val.(string); isString && IsCorruptedMarker(s) {
		issues.add("notes", IssueCorruptedNotes, "notes cell holds a corrupted serialization marker")
		return nil
	}
	var notes []string
	for _, note := range toList(val, NotesSeparator) {
		if IsCorruptedMarker(note) {
			issues.add("notes", IssueCorruptedNotes, "note entry holds a corrupted serialization marker")
			continue
		}
		notes = append(notes, CleanNote(note))
	}
	return notes
}

func optionalTime(raw Bag, field string, issues *issueList, aliases ...string) *time.Time {
	t := timeField(raw, field, issues, aliases...)
	if t.IsZero() {
		return nil
	}
	return &t
}

// now stamps resolved complaints that carry no timestamp at all.
var now = time.Now

// enforceResolvedAt keeps resolvedAt set exactly when the status is resolved.
func enforceResolvedAt(c *domain.Complaint, issues *issueList) {
	if c.Status == domain.StatusResolved {
		if c.ResolvedAt != nil {
			return
		}
		fallback := c.UpdatedAt
		if fallback.IsZero() {
			fallback = c.CreatedAt
		}
		if fallback.IsZero() {
			fallback = now().UTC()
		}
		c.ResolvedAt = &fallback
		issues.add("resolved_at", IssueInconsistentResolvedAt, "resolved complaint without resolvedAt")
		return
	}
	if c.ResolvedAt != nil {
		c.ResolvedAt = nil
		issues.add("resolved_at", IssueInconsistentResolvedAt, "resolvedAt present on a "+string(c.Status)+" complaint")
	}
}
