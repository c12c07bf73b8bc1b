package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditEventCategory(t *testing.T) {
	assert.Equal(t, CategoryMembership, EventMemberAdded.Category())
	assert.Equal(t, CategoryMembership, EventMemberRemoved.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("cache_warmed").Category())
}
