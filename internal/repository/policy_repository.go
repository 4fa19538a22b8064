package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/complaint-service/internal/policy"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

const uniqueViolation = "23505"

// Querier is the subset of pgxpool.Pool the repositories use.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PolicyRepository persists every policy version ever published.
type PolicyRepository interface {
	Latest(ctx context.Context) (*policy.Snapshot, error)
	Save(ctx context.Context, snap *policy.Snapshot) error
}

type policyRepository struct {
	db Querier
}

// NewPolicyRepository returns a Postgres-backed implementation.
func NewPolicyRepository(db Querier) PolicyRepository {
	return &policyRepository{db: db}
}

// Latest returns the highest stored version, or pgx.ErrNoRows when nothing was saved yet.
func (r *policyRepository) Latest(ctx context.Context) (*policy.Snapshot, error) {
	const query = `
        SELECT document
        FROM policy_snapshots
        ORDER BY version DESC
        LIMIT 1`

	var document []byte
	if err := r.db.QueryRow(ctx, query).Scan(&document); err != nil {
		return nil, err
	}
	snap, err := policy.Decode(document)
	if err != nil {
		return nil, fmt.Errorf("stored policy snapshot: %w", err)
	}
	return snap, nil
}

// Save inserts snap. A version that already exists is reported as a conflict.
func (r *policyRepository) Save(ctx context.Context, snap *policy.Snapshot) error {
	const query = `
        INSERT INTO policy_snapshots (version, document, updated_by, updated_at)
        VALUES ($1, $2, $3, $4)`

	document, err := snap.MarshalJSON()
	if err != nil {
		return err
	}
	updatedAt := snap.UpdatedAt()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = r.db.Exec(ctx, query, snap.Version(), document, snap.UpdatedBy(), updatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.NewConflict("policy version already exists", map[string]any{"version": snap.Version()})
		}
		return err
	}
	return nil
}
