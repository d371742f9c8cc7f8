package memory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/yichenlu/sensereader/pkg/types"
)

// GetPreferences returns the stored preferences for a user, or the defaults
// when the user has none. A missing user is not an error.
func (s *Store) GetPreferences(ctx context.Context, userID string) types.Preferences {
	prefs := types.DefaultPreferences()
	if userID == "" {
		return prefs
	}
	if err := s.getJSON(ctx, userKey(prefsPrefix, userID), &prefs); err != nil {
		return types.DefaultPreferences()
	}
	return prefs
}

// SetPreferences merges patch into the user's preferences, last-write-wins
// per key, and persists the result. Unknown keys are preserved verbatim in
// Extra for forward compatibility.
func (s *Store) SetPreferences(ctx context.Context, userID string, patch map[string]any) (types.Preferences, error) {
	if userID == "" {
		return types.Preferences{}, fmt.Errorf("user id is required")
	}

	prefs := s.GetPreferences(ctx, userID)
	applyPatch(&prefs, patch)

	if err := s.putJSON(ctx, userKey(prefsPrefix, userID), prefs); err != nil {
		return types.Preferences{}, fmt.Errorf("failed to persist preferences: %w", err)
	}
	return prefs, nil
}

func applyPatch(prefs *types.Preferences, patch map[string]any) {
	for key, val := range patch {
		switch key {
		case "voice_speed":
			if f, ok := asFloat(val); ok {
				prefs.VoiceSpeed = f
			}
		case "preferred_voice":
			if v, ok := val.(string); ok {
				prefs.PreferredVoice = v
			}
		case "reading_mode":
			if v, ok := val.(string); ok {
				prefs.ReadingMode = v
			}
		case "language":
			if v, ok := val.(string); ok {
				prefs.Language = v
			}
		case "haptics_enabled":
			if b, ok := val.(bool); ok {
				prefs.HapticsEnabled = b
			}
		case "scent_enabled":
			if b, ok := val.(bool); ok {
				prefs.ScentEnabled = b
			}
		case "reading_wpm":
			if f, ok := asFloat(val); ok && f > 0 {
				prefs.ReadingWPM = f
			}
		default:
			if prefs.Extra == nil {
				prefs.Extra = make(map[string]string)
			}
			prefs.Extra[key] = fmt.Sprintf("%v", val)
		}
	}
}

func asFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
