// Package memory is an in-process progress store and analytics sink,
// used by the CLI player and by tests.
package memory

import (
	"sync"
	"time"
)

type position struct {
	sceneID   string
	flags     map[string]any
	completed bool
}

// ChoiceEvent is one recorded choice selection.
type ChoiceEvent struct {
	SessionKey string
	SceneID    string
	ChoiceID   string
	Taken      time.Time
}

// Store holds per-session progress and choice events in memory.
// The zero value is not usable; call NewStore.
type Store struct {
	mu        sync.Mutex
	positions map[string]position
	choices   []ChoiceEvent
}

func NewStore() *Store {
	return &Store{positions: make(map[string]position)}
}

// LoadPosition implements the interpreter's progress-store contract.
func (s *Store) LoadPosition(sessionKey string) (string, map[string]any, bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.positions[sessionKey]
	if !ok {
		return "", nil, false, false, nil
	}
	flags := make(map[string]any, len(pos.flags))
	for k, v := range pos.flags {
		flags[k] = v
	}
	return pos.sceneID, flags, pos.completed, true, nil
}

// SavePosition merges flags over any stored ones and replaces the
// position.
func (s *Store) SavePosition(sessionKey, sceneID string, flags map[string]any, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[string]any)
	if prev, ok := s.positions[sessionKey]; ok {
		for k, v := range prev.flags {
			merged[k] = v
		}
	}
	for k, v := range flags {
		merged[k] = v
	}

	s.positions[sessionKey] = position{sceneID: sceneID, flags: merged, completed: completed}
	return nil
}

// RecordChoiceTaken implements the interpreter's analytics sink.
func (s *Store) RecordChoiceTaken(sessionKey, sceneID, choiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.choices = append(s.choices, ChoiceEvent{
		SessionKey: sessionKey,
		SceneID:    sceneID,
		ChoiceID:   choiceID,
		Taken:      time.Now(),
	})
	return nil
}

// ChoiceEvents returns a copy of all recorded choice events.
func (s *Store) ChoiceEvents() []ChoiceEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ChoiceEvent, len(s.choices))
	copy(out, s.choices)
	return out
}
