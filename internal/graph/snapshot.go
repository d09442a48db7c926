// Package graph builds and holds published, immutable scene graphs.
//
// A Snapshot is created once per publish from the current draft
// content and never mutated afterwards; republishing produces a new,
// independently versioned Snapshot. Many player sessions read one
// Snapshot concurrently without locking.
package graph

import (
	"github.com/chatstory/engine/internal/script"
)

// Day is the day-level metadata carried into a snapshot.
type Day struct {
	Number          int    `json:"day_number"`
	Title           string `json:"title"`
	BackgroundStyle string `json:"background_style,omitempty"`
	RecapText       string `json:"recap_text,omitempty"`
}

// Scene is a linked scene inside a snapshot. NextSceneID, when set, is
// an explicit override of the default sequential continuation.
type Scene struct {
	ID          string           `json:"id"`
	SortIndex   int              `json:"sort_index"`
	Type        script.SceneType `json:"type"`
	Speaker     script.Speaker   `json:"speaker,omitempty"`
	Text        string           `json:"text,omitempty"`
	Meta        script.Meta      `json:"meta,omitempty"`
	NextSceneID string           `json:"next_scene_id,omitempty"`
	Tag         string           `json:"tag,omitempty"`
}

// Choice is a linked choice: its jump target is a concrete scene id,
// never a tag.
type Choice struct {
	ID          string         `json:"id"`
	SceneID     string         `json:"scene_id"`
	Label       string         `json:"label"`
	GotoSceneID string         `json:"goto_scene_id,omitempty"`
	SetFlags    map[string]any `json:"set_flags,omitempty"`
	SortIndex   int            `json:"sort_index"`
}

// IsInput reports whether this is the synthetic input continuation.
func (c *Choice) IsInput() bool {
	return c.Label == script.InputChoiceLabel
}

// Snapshot is one published version of a day. Treat as read-only.
type Snapshot struct {
	Version int      `json:"version"`
	Day     Day      `json:"day"`
	Scenes  []Scene  `json:"scenes"`
	Choices []Choice `json:"choices"`

	byID           map[string]*Scene
	choicesByScene map[string][]*Choice
	order          []string
}

// index builds the lookup structures. Called once at build time.
func (s *Snapshot) index() {
	s.byID = make(map[string]*Scene, len(s.Scenes))
	s.order = make([]string, 0, len(s.Scenes))
	for i := range s.Scenes {
		sc := &s.Scenes[i]
		s.byID[sc.ID] = sc
		s.order = append(s.order, sc.ID)
	}

	s.choicesByScene = make(map[string][]*Choice)
	for i := range s.Choices {
		c := &s.Choices[i]
		s.choicesByScene[c.SceneID] = append(s.choicesByScene[c.SceneID], c)
	}
	// Builder emits choices in sort order already; keep the per-scene
	// lists as-is.
}

// Scene returns the scene with the given id.
func (s *Snapshot) Scene(id string) (*Scene, bool) {
	sc, ok := s.byID[id]
	return sc, ok
}

// SceneChoices returns all choices attached to a scene, including the
// synthetic input continuation, sorted by declared order.
func (s *Snapshot) SceneChoices(sceneID string) []*Choice {
	return s.choicesByScene[sceneID]
}

// Options returns the player-visible options of a scene: the synthetic
// input continuation is filtered out.
func (s *Snapshot) Options(sceneID string) []*Choice {
	var out []*Choice
	for _, c := range s.choicesByScene[sceneID] {
		if !c.IsInput() {
			out = append(out, c)
		}
	}
	return out
}

// FirstSceneID returns the entry scene of the default sequence, or ""
// for an empty snapshot.
func (s *Snapshot) FirstSceneID() string {
	if len(s.order) == 0 {
		return ""
	}
	return s.order[0]
}

// NextInOrder returns the scene that follows the given one in the
// default sequence, or "" at the end of the graph.
func (s *Snapshot) NextInOrder(sceneID string) string {
	for i, id := range s.order {
		if id == sceneID && i+1 < len(s.order) {
			return s.order[i+1]
		}
	}
	return ""
}

// SceneOrder returns the default traversal sequence of scene ids.
func (s *Snapshot) SceneOrder() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SceneIndex returns the position of a scene in the default sequence,
// or -1 if the id is not part of this snapshot.
func (s *Snapshot) SceneIndex(sceneID string) int {
	for i, id := range s.order {
		if id == sceneID {
			return i
		}
	}
	return -1
}
