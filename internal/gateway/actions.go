package gateway

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/spec-kit/complaint-service/internal/canonical"
	"github.com/spec-kit/complaint-service/internal/domain"
)

// ComplaintStore is the slice of the record store the lifecycle engine needs.
type ComplaintStore interface {
	GetComplaints(ctx context.Context, q ListQuery) (Page, error)
	CreateComplaint(ctx context.Context, attrs canonical.Bag, meta domain.ActivityMeta) (canonical.Bag, error)
	UpdateComplaint(ctx context.Context, req UpdateRequest) (canonical.Bag, error)
}

// UserStore covers account management and login lookups.
type UserStore interface {
	Login(ctx context.Context, email string) (canonical.Bag, error)
	GetUsers(ctx context.Context, q ListQuery) (Page, error)
	CreateUser(ctx context.Context, attrs canonical.Bag, meta domain.ActivityMeta) (canonical.Bag, error)
	UpdateUser(ctx context.Context, req UpdateRequest) (canonical.Bag, error)
	DeleteUser(ctx context.Context, id string, meta domain.ActivityMeta) error
	ResetUserPassword(ctx context.Context, id, passwordHash string, meta domain.ActivityMeta) error
}

// CustomerStore covers customer records.
type CustomerStore interface {
	GetCustomers(ctx context.Context, q ListQuery) (Page, error)
	CreateCustomer(ctx context.Context, attrs canonical.Bag, meta domain.ActivityMeta) (canonical.Bag, error)
}

// ActivityStore exposes the store-side activity feed and aggregate counters.
type ActivityStore interface {
	GetActivityFeed(ctx context.Context, limit int) ([]domain.ActivityEntry, error)
	GetDashboardStats(ctx context.Context) (domain.DashboardStats, error)
}

// UpdateRequest describes a partial update of one record. ExpectedVersion is only sent
// when positive; the store then rejects the write if the record moved on.
type UpdateRequest struct {
	ID              string
	Updates         canonical.Bag
	ExpectedVersion int64
	Activity        domain.ActivityMeta
}

func (r UpdateRequest) payload() map[string]any {
	payload := map[string]any{"id": r.ID, "updates": r.Updates}
	if r.ExpectedVersion > 0 {
		payload["expectedVersion"] = r.ExpectedVersion
	}
	return payload
}

// Login looks up the account for email. Password verification happens in the caller
// against the returned hash.
func (c *Client) Login(ctx context.Context, email string) (canonical.Bag, error) {
	env, err := c.post(ctx, ActionLogin, map[string]any{"email": email}, domain.ActivityMeta{})
	if err != nil {
		return nil, err
	}
	record, err := decodeRecord(env.Data)
	if err != nil {
		return nil, decodeFailure(ActionLogin, err)
	}
	// login responses may nest the account under "user"
	if nested, ok := record["user"].(map[string]any); ok {
		return canonical.Bag(nested), nil
	}
	return record, nil
}

// GetUsers lists user records.
func (c *Client) GetUsers(ctx context.Context, q ListQuery) (Page, error) {
	return c.list(ctx, ActionGetUsers, q)
}

// CreateUser inserts a user record.
func (c *Client) CreateUser(ctx context.Context, attrs canonical.Bag, meta domain.ActivityMeta) (canonical.Bag, error) {
	return c.mutateRecord(ctx, ActionCreateUser, attrs, meta)
}

// UpdateUser applies a partial update to a user record.
func (c *Client) UpdateUser(ctx context.Context, req UpdateRequest) (canonical.Bag, error) {
	return c.mutateRecord(ctx, ActionUpdateUser, req.payload(), req.Activity)
}

// DeleteUser asks the store to deactivate a user.
func (c *Client) DeleteUser(ctx context.Context, id string, meta domain.ActivityMeta) error {
	_, err := c.post(ctx, ActionDeleteUser, map[string]any{"id": id}, meta)
	return err
}

// ResetUserPassword stores a new password hash.
func (c *Client) ResetUserPassword(ctx context.Context, id, passwordHash string, meta domain.ActivityMeta) error {
	_, err := c.post(ctx, ActionResetUserPassword, map[string]any{"id": id, "passwordHash": passwordHash}, meta)
	return err
}

// GetCustomers lists customer records.
func (c *Client) GetCustomers(ctx context.Context, q ListQuery) (Page, error) {
	return c.list(ctx, ActionGetCustomers, q)
}

// CreateCustomer inserts a customer record.
func (c *Client) CreateCustomer(ctx context.Context, attrs canonical.Bag, meta domain.ActivityMeta) (canonical.Bag, error) {
	return c.mutateRecord(ctx, ActionCreateCustomer, attrs, meta)
}

// GetComplaints lists complaint records.
func (c *Client) GetComplaints(ctx context.Context, q ListQuery) (Page, error) {
	return c.list(ctx, ActionGetComplaints, q)
}

// CreateComplaint inserts a complaint record.
func (c *Client) CreateComplaint(ctx context.Context, attrs canonical.Bag, meta domain.ActivityMeta) (canonical.Bag, error) {
	return c.mutateRecord(ctx, ActionCreateComplaint, attrs, meta)
}

// UpdateComplaint applies a partial update to a complaint record.
func (c *Client) UpdateComplaint(ctx context.Context, req UpdateRequest) (canonical.Bag, error) {
	return c.mutateRecord(ctx, ActionUpdateComplaint, req.payload(), req.Activity)
}

// GetDashboardStats returns the store's aggregate counters.
func (c *Client) GetDashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	env, err := c.get(ctx, ActionGetDashboardStats, nil)
	if err != nil {
		return nil, err
	}
	stats := domain.DashboardStats{}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &stats); err != nil {
			return nil, decodeFailure(ActionGetDashboardStats, err)
		}
	}
	return stats, nil
}

// GetActivityFeed returns the most recent activity entries.
func (c *Client) GetActivityFeed(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	params := map[string]string{}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	env, err := c.get(ctx, ActionGetActivityFeed, params)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords(env.Data)
	if err != nil {
		return nil, decodeFailure(ActionGetActivityFeed, err)
	}
	entries := make([]domain.ActivityEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, canonical.NormalizeActivity(record))
	}
	return entries, nil
}

// HealthCheck pings the store.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.get(ctx, ActionHealthCheck, nil)
	return err
}

func (c *Client) list(ctx context.Context, action string, q ListQuery) (Page, error) {
	env, err := c.get(ctx, action, q.params())
	if err != nil {
		return Page{}, err
	}
	items, err := decodeRecords(env.Data)
	if err != nil {
		return Page{}, decodeFailure(action, err)
	}
	return Page{Items: items, Pagination: env.Pagination}, nil
}

func (c *Client) mutateRecord(ctx context.Context, action string, payload map[string]any, meta domain.ActivityMeta) (canonical.Bag, error) {
	env, err := c.post(ctx, action, payload, meta)
	if err != nil {
		return nil, err
	}
	record, err := decodeRecord(env.Data)
	if err != nil {
		return nil, decodeFailure(action, err)
	}
	return record, nil
}
