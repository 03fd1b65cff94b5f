package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-service/internal/models"
)

func TestRosterIgnoresSelf(t *testing.T) {
	roster := newTypingRoster(1)

	roster.Apply(models.TypingSignal{UserID: 1, UserName: "me", IsTyping: true})
	assert.Empty(t, roster.Typing())

	roster.Apply(models.TypingSignal{UserID: 2, UserName: "bob", IsTyping: true})
	require.Len(t, roster.Typing(), 1)
}

func TestRosterLastWriteWins(t *testing.T) {
	roster := newTypingRoster(1)

	roster.Apply(models.TypingSignal{UserID: 2, UserName: "bob", IsTyping: true})
	roster.Apply(models.TypingSignal{UserID: 2, UserName: "bobby", IsTyping: true})

	typing := roster.Typing()
	require.Len(t, typing, 1)
	assert.Equal(t, "bobby", typing[0].UserName)

	roster.Apply(models.TypingSignal{UserID: 2, IsTyping: false})
	assert.Empty(t, roster.Typing())
}

func TestRosterStopForUnknownUserIsNoop(t *testing.T) {
	roster := newTypingRoster(1)

	roster.Apply(models.TypingSignal{UserID: 5, IsTyping: false})
	assert.Empty(t, roster.Typing())
}

func TestRosterOrderedByUserID(t *testing.T) {
	roster := newTypingRoster(1)

	roster.Apply(models.TypingSignal{UserID: 9, UserName: "z", IsTyping: true})
	roster.Apply(models.TypingSignal{UserID: 2, UserName: "a", IsTyping: true})

	typing := roster.Typing()
	require.Len(t, typing, 2)
	assert.Equal(t, 2, typing[0].UserID)
	assert.Equal(t, 9, typing[1].UserID)
}
