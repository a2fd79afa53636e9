package migration

import "strings"

// CurrentGamePrefix prefixes the key of each game's live state.
const CurrentGamePrefix = "currentGame_"

// Classification splits keys into those needed before the app is usable and
// the rest. Both keep the input order.
type Classification struct {
	Critical   []string
	Background []string
}

// ClassifyKeys marks a key critical when it starts with one of
// criticalPrefixes or is the active game's state.
func ClassifyKeys(keys, criticalPrefixes []string, currentGameID string) Classification {
	var currentGame string
	if currentGameID != "" {
		currentGame = CurrentGamePrefix + currentGameID
	}

	var c Classification
	for _, key := range keys {
		if isCritical(key, criticalPrefixes, currentGame) {
			c.Critical = append(c.Critical, key)
		} else {
			c.Background = append(c.Background, key)
		}
	}
	return c
}

func isCritical(key string, prefixes []string, currentGame string) bool {
	if currentGame != "" && key == currentGame {
		return true
	}
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
