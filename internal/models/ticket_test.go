package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ticketCodePattern = regexp.MustCompile(`^[A-Z2-9]{4}-[A-Z2-9]{4}$`)

func TestGenerateTicketCode_Format(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateTicketCode()
		require.NoError(t, err)
		assert.Regexp(t, ticketCodePattern, code)
	}
}

func TestGenerateTicketCode_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		code, err := GenerateTicketCode()
		require.NoError(t, err)
		seen[code] = true
	}
	// 32^8 possibilities; 500 draws colliding would point at a broken generator
	assert.Greater(t, len(seen), 495)
}

func TestNormalizeTicketCode(t *testing.T) {
	assert.Equal(t, "AB12-CD34", NormalizeTicketCode("  ab12-cd34\n"))
}

func TestTicket_IsUsed(t *testing.T) {
	ticket := &Ticket{}
	assert.False(t, ticket.IsUsed())

	now := time.Now()
	ticket.UsedAt = &now
	assert.True(t, ticket.IsUsed())
}

func TestIdentity_IDPtr(t *testing.T) {
	var anon *Identity
	assert.Nil(t, anon.IDPtr())
	assert.Nil(t, (&Identity{Email: "a@b.co"}).IDPtr())

	id := (&Identity{ID: "u1"}).IDPtr()
	require.NotNil(t, id)
	assert.Equal(t, "u1", *id)
}
