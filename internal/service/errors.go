package service

import (
	"errors"

	"github.com/zitodamiano1998-max/cpsm-shop/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Typed failures surfaced by the ledger and alert services. Handlers map
// these to HTTP statuses; everything else is a 500.
var (
	// ErrRoleRestriction: the actor's role does not permit the request
	// (desk accounts can only register OUT movements with negative qty).
	ErrRoleRestriction = errors.New("role does not permit this operation")

	// ErrInvalidMovement: qty/reason/price shape violates the ledger rules.
	ErrInvalidMovement = errors.New("invalid movement shape")

	// ErrUnknownProduct: the movement references a product that does not exist.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrContention: the per-product lock was held by a concurrent movement.
	// The only retryable error — callers resubmit the whole movement.
	ErrContention = errors.New("concurrent movement in progress, retry")

	// ErrAlreadyResolved: resolving an alert that is not open.
	ErrAlreadyResolved = errors.New("alert is already resolved")

	// ErrAlertAlreadyOpen: manual alert creation while an open alert exists.
	ErrAlertAlreadyOpen = errors.New("an open alert already exists for this product")

	// ErrNotFound: missing alert, product, or other entity.
	ErrNotFound = errors.New("not found")

	// ErrInvalidStatus: an unrecognized alert status filter value.
	ErrInvalidStatus = errors.New("invalid status filter")
)

// Actor is the authenticated party issuing a request, passed explicitly into
// every ledger and alert call instead of being read from ambient session
// state.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Postgres SQLSTATE codes the ledger reacts to.
const (
	pgLockNotAvailable = "55P03" // FOR UPDATE NOWAIT lost the race
	pgUniqueViolation  = "23505" // partial unique index on open alerts
)

func isLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
