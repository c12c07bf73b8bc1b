package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "roster/pkg/domain-errors"
)

// AccountID identifies a registry member. It is the record the registries store.
type AccountID uuid.UUID

// CallerID identifies the authenticated principal invoking a registry operation.
// It is the token subject and is never interpreted by the registries.
type CallerID string

// NewAccountID returns a random account identity.
func NewAccountID() AccountID {
	return AccountID(uuid.New())
}

// ParseAccountID parses an account identity at a trust boundary.
// Empty, malformed and nil UUIDs are rejected.
func ParseAccountID(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AccountID{}, dErrors.New(dErrors.CodeInvalidInput, "account id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return AccountID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid account id")
	}
	if parsed == uuid.Nil {
		return AccountID{}, dErrors.New(dErrors.CodeInvalidInput, "account id must not be nil")
	}
	return AccountID(parsed), nil
}

func (a AccountID) String() string {
	return uuid.UUID(a).String()
}

func (a AccountID) IsNil() bool {
	return uuid.UUID(a) == uuid.Nil
}

func (c CallerID) String() string {
	return string(c)
}

func (c CallerID) IsZero() bool {
	return c == ""
}
