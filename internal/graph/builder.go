package graph

import (
	"fmt"

	"github.com/chatstory/engine/internal/script"
)

// LinkError means a jump target could not be resolved at publish time.
// It aborts the publish; any previously published snapshot stays
// untouched.
type LinkError struct {
	Tag   string
	Label string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link: option %q points at unresolved tag %q", e.Label, e.Tag)
}

// DuplicateTagError means two scenes share a tag, which would make the
// jump target ambiguous.
type DuplicateTagError struct {
	Tag string
}

func (e *DuplicateTagError) Error() string {
	return fmt.Sprintf("link: tag %q defined on more than one scene", e.Tag)
}

// Build links a compiled draft into an immutable snapshot. Tags are
// resolved here a final time even though the compiler and validator
// already checked them: the draft may have drifted since, and publish
// is the authoritative gate. Build fails fast on the first integrity
// problem.
func Build(day Day, res *script.CompileResult, version int) (*Snapshot, error) {
	if !res.OK() {
		return nil, fmt.Errorf("link: draft has %d compile errors", len(res.Errors))
	}
	if len(res.Scenes) == 0 {
		return nil, fmt.Errorf("link: draft has no scenes")
	}

	snap := &Snapshot{
		Version: version,
		Day:     day,
		Scenes:  make([]Scene, 0, len(res.Scenes)),
		Choices: make([]Choice, 0, len(res.Choices)),
	}

	// Scene ids are deterministic positions: stable across republish
	// as long as the order is unchanged.
	tagToID := make(map[string]string)
	for i, sc := range res.Scenes {
		id := sceneID(i)
		if sc.Tag != "" {
			if _, dup := tagToID[sc.Tag]; dup {
				return nil, &DuplicateTagError{Tag: sc.Tag}
			}
			tagToID[sc.Tag] = id
		}
		snap.Scenes = append(snap.Scenes, Scene{
			ID:        id,
			SortIndex: i,
			Type:      sc.Type,
			Speaker:   sc.Speaker,
			Text:      sc.Text,
			Meta:      sc.Meta,
			Tag:       sc.Tag,
		})
	}

	// Choices arrive grouped by scene in declaration order; emit them
	// per scene so SortIndex ordering holds within each scene.
	for i := range res.Scenes {
		for _, c := range res.SceneChoices(i) {
			linked := Choice{
				ID:        choiceID(i, c.SortIndex),
				SceneID:   sceneID(i),
				Label:     c.Label,
				SetFlags:  copyFlags(c.SetFlags),
				SortIndex: c.SortIndex,
			}
			if c.GotoTag != "" {
				target, ok := tagToID[c.GotoTag]
				if !ok {
					return nil, &LinkError{Tag: c.GotoTag, Label: c.Label}
				}
				linked.GotoSceneID = target
			}
			snap.Choices = append(snap.Choices, linked)
		}
	}

	snap.index()
	return snap, nil
}

func sceneID(index int) string {
	return fmt.Sprintf("s%03d", index)
}

func choiceID(sceneIndex, sortIndex int) string {
	return fmt.Sprintf("s%03d.c%d", sceneIndex, sortIndex)
}

func copyFlags(flags map[string]any) map[string]any {
	if flags == nil {
		return nil
	}
	out := make(map[string]any, len(flags))
	for k, v := range flags {
		out[k] = v
	}
	return out
}
