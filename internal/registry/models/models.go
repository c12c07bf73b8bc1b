package models

import (
	"math"
	"strconv"
	"time"

	id "roster/pkg/domain"
)

// Index addresses a registry slot. Slot 0 is never used; the first member lands at 1.
type Index uint32

// MaxIndex is the largest representable slot.
const MaxIndex Index = math.MaxUint32

// ParseIndex parses a decimal slot index.
func ParseIndex(s string) (Index, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return Index(v), nil
}

func (i Index) String() string {
	return strconv.FormatUint(uint64(i), 10)
}

// Kind names a registry strategy.
type Kind string

const (
	// KindDense compacts removals by moving the highest-indexed member into the gap.
	KindDense Kind = "dense"
	// KindLinked fills removals with the member at the tracked head.
	KindLinked Kind = "linked"
)

// ParseKind maps a path segment to a registry kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindDense, KindLinked:
		return Kind(s), true
	default:
		return "", false
	}
}

// EventKind distinguishes membership notifications.
type EventKind string

const (
	EventMemberAdded   EventKind = "member_added"
	EventMemberRemoved EventKind = "member_removed"
)

// Event is pushed to the event sink after a mutation commits.
// Index is the slot the caller addressed: the new slot for adds, the requested slot for removals.
type Event struct {
	Kind      EventKind
	Registry  Kind
	Account   id.AccountID
	Index     Index
	Caller    id.CallerID
	RequestID string
	Timestamp time.Time
}

// MemberAdded builds an added notification.
func MemberAdded(registry Kind, account id.AccountID, index Index) Event {
	return Event{Kind: EventMemberAdded, Registry: registry, Account: account, Index: index}
}

// MemberRemoved builds a removed notification.
func MemberRemoved(registry Kind, account id.AccountID, index Index) Event {
	return Event{Kind: EventMemberRemoved, Registry: registry, Account: account, Index: index}
}
