package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tailor-market/api/internal/repositories"
)

var (
	// ErrValidation signals the caller provided invalid data. No storage was touched.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a duplicate or a concurrent modification.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized indicates the caller does not own the resource.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBusinessRule indicates the request is well formed but not allowed in the current state.
	ErrBusinessRule = errors.New("business rule violated")
	// ErrEmptyCart indicates checkout was attempted without cart items.
	ErrEmptyCart = fmt.Errorf("%w: cart is empty", ErrBusinessRule)
	// ErrInsufficientFunds indicates a debit would take the wallet below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInfrastructure indicates storage was unavailable or a commit failed.
	ErrInfrastructure = errors.New("infrastructure failure")
)

// Entity names carried by NotFoundError.
const (
	EntityDesign      = "design"
	EntityMaterial    = "material"
	EntitySize        = "size"
	EntityColor       = "color"
	EntityCartItem    = "cart_item"
	EntityOrder       = "order"
	EntityTransaction = "transaction"
	EntityUser        = "user"
)

// NotFoundError names the missing entity and the id that was looked up.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) hold for every NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// NotFoundEntity returns the entity of a NotFoundError in err's chain.
func NotFoundEntity(err error) (string, bool) {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Entity, true
	}
	return "", false
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// mapRepositoryError classifies a storage failure. entity and id name the record being read or
// written so a missing record surfaces as NotFoundError.
func mapRepositoryError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if isServiceError(err) || isContextError(err) {
		return err
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return notFound(entity, id)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %s %s: %v", ErrConflict, entity, id, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrInfrastructure, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrInfrastructure, err)
}

// mapCommitError classifies an error returned by RunInTx. Domain errors raised inside the callback
// pass through; anything else happened while committing.
func mapCommitError(err error) error {
	if err == nil {
		return nil
	}
	if isServiceError(err) || isContextError(err) {
		return err
	}
	return fmt.Errorf("%w: commit: %v", ErrInfrastructure, err)
}

func isServiceError(err error) bool {
	for _, kind := range []error{
		ErrValidation, ErrNotFound, ErrConflict, ErrUnauthorized,
		ErrBusinessRule, ErrInsufficientFunds, ErrInfrastructure,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
