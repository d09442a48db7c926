// Package player interprets a published scene graph for one end-user
// session: timing, branching, input collection, flag state, and
// resumability.
package player

// ProgressStore is the external persistence collaborator. The
// interpreter calls it on every successful advance; it never implements
// storage itself.
type ProgressStore interface {
	// LoadPosition returns the saved position for a session key.
	// found is false when the session has no stored progress.
	LoadPosition(sessionKey string) (sceneID string, flags map[string]any, completed bool, found bool, err error)
	// SavePosition persists the new position. Implementations merge
	// the flag set over any previously stored flags.
	SavePosition(sessionKey, sceneID string, flags map[string]any, completed bool) error
}

// EventSink receives analytics events. Calls are fire-and-forget: a
// failing sink must never block or fail playback.
type EventSink interface {
	RecordChoiceTaken(sessionKey, sceneID, choiceID string) error
}
