// Package gateway talks to the external record store through its action dispatcher.
//
// Reads are GET requests carrying ?action=<name>; mutations are JSON POSTs of
// {"action": <name>, ...payload, "activity": {...}}. Every response is an Envelope.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// Action names understood by the record store.
const (
	ActionLogin             = "login"
	ActionGetUsers          = "getUsers"
	ActionCreateUser        = "createUser"
	ActionUpdateUser        = "updateUser"
	ActionDeleteUser        = "deleteUser"
	ActionResetUserPassword = "resetUserPassword"
	ActionGetCustomers      = "getCustomers"
	ActionCreateCustomer    = "createCustomer"
	ActionGetComplaints     = "getComplaints"
	ActionCreateComplaint   = "createComplaint"
	ActionUpdateComplaint   = "updateComplaint"
	ActionGetDashboardStats = "getDashboardStats"
	ActionGetActivityFeed   = "getActivityFeed"
	ActionHealthCheck       = "healthCheck"
)

// CallObserver receives the outcome of every store call; implemented by observability.Metrics.
type CallObserver interface {
	ObserveGatewayCall(action, outcome string, duration time.Duration)
}

// Client is the record store client. Reads and mutations use separate resty clients so
// that only reads are ever retried.
type Client struct {
	reader   *resty.Client
	writer   *resty.Client
	logger   *zap.Logger
	observer CallObserver
}

// NewClient builds a client from configuration. observer may be nil.
func NewClient(cfg config.GatewayConfig, logger *zap.Logger, observer CallObserver) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := func() *resty.Client {
		c := resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout()).
			SetHeader("Accept", "application/json")
		if cfg.APIKey != "" {
			c.SetHeader("X-API-Key", cfg.APIKey)
		}
		return c
	}

	reader := base().
		SetRetryCount(cfg.ReadRetries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})

	writer := base().
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")

	return &Client{reader: reader, writer: writer, logger: logger, observer: observer}
}

// ListQuery selects a page of records.
type ListQuery struct {
	Page    int
	Limit   int
	Filters map[string]string
}

func (q ListQuery) params() map[string]string {
	params := make(map[string]string, len(q.Filters)+2)
	for k, v := range q.Filters {
		if v != "" {
			params[k] = v
		}
	}
	if q.Page > 0 {
		params["page"] = strconv.Itoa(q.Page)
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}
	return params
}

func (c *Client) get(ctx context.Context, action string, params map[string]string) (*Envelope, error) {
	req := c.reader.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		SetQueryParam("action", action).
		SetQueryParams(params)
	return c.do(action, func() (*resty.Response, error) { return req.Get("") })
}

func (c *Client) post(ctx context.Context, action string, payload map[string]any, meta domain.ActivityMeta) (*Envelope, error) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["action"] = action
	body["activity"] = map[string]any{
		"actorId":            meta.ActorID,
		"actorRole":          string(meta.ActorRole),
		"relatedComplaintId": meta.RelatedComplaintID,
	}

	req := c.writer.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		SetBody(body)
	return c.do(action, func() (*resty.Response, error) { return req.Post("") })
}

func (c *Client) do(action string, send func() (*resty.Response, error)) (*Envelope, error) {
	start := time.Now()
	resp, err := send()
	if err != nil {
		c.observe(action, "transport_error", start)
		c.logger.Warn("record store unreachable", zap.String("action", action), zap.Error(err))
		return nil, apperrors.NewConnectivityError(fmt.Errorf("%s: %w", action, err))
	}

	if resp.StatusCode() >= http.StatusInternalServerError {
		c.observe(action, "server_error", start)
		c.logger.Warn("record store server error",
			zap.String("action", action),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, apperrors.NewConnectivityError(fmt.Errorf("%s: store returned HTTP %d", action, resp.StatusCode()))
	}

	var env Envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		c.observe(action, "malformed", start)
		c.logger.Error("record store returned malformed envelope",
			zap.String("action", action),
			zap.Int("status_code", resp.StatusCode()),
			zap.Error(err),
		)
		return nil, apperrors.NewInternalError(fmt.Errorf("%s: decode envelope: %w", action, err))
	}

	if !env.Success {
		c.observe(action, "store_error", start)
		message := env.ErrorMessage()
		c.logger.Info("record store rejected action", zap.String("action", action), zap.String("store_message", message))
		return nil, mapStoreError(action, message)
	}

	c.observe(action, "ok", start)
	return &env, nil
}

func (c *Client) observe(action, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveGatewayCall(action, outcome, time.Since(start))
	}
}

func decodeFailure(action string, err error) error {
	return apperrors.NewInternalError(fmt.Errorf("%s: decode data: %w", action, err))
}
