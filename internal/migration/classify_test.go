package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyKeys(t *testing.T) {
	keys := []string{"bg_1", "settings", "currentGame_123", "currentGame_999", "teamRoster_7", "masterRoster", "bg_2"}

	got := ClassifyKeys(keys, []string{"settings", "teamRoster", "masterRoster"}, "123")

	assert.Equal(t, []string{"settings", "currentGame_123", "teamRoster_7", "masterRoster"}, got.Critical)
	assert.Equal(t, []string{"bg_1", "currentGame_999", "bg_2"}, got.Background)
}

func TestClassifyKeys_NoCurrentGame(t *testing.T) {
	got := ClassifyKeys([]string{"currentGame_", "currentGame_1"}, nil, "")

	assert.Empty(t, got.Critical)
	assert.Len(t, got.Background, 2)
}

func TestCategory(t *testing.T) {
	tests := map[string]string{
		"currentGame_123": "currentGame",
		"player:42":       "player",
		"season-2024":     "season",
		"settings":        "settings",
		"_hidden":         "_hidden",
		"a.b":             "a",
	}
	for key, want := range tests {
		assert.Equal(t, want, Category(key), key)
	}
}
