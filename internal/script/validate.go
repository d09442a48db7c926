package script

import "fmt"

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding of the day-review validator. SceneIndex is -1
// for script-wide issues.
type Issue struct {
	Severity   Severity `json:"severity"`
	SceneIndex int      `json:"scene_index"`
	Message    string   `json:"message"`
}

// Validate runs graph-level integrity checks over a compiled script.
// It deliberately repeats the compiler's goto-tag resolution check:
// drafts can drift between import and review, so both passes stay.
// Unreachable scenes are detected (see ReachableScenes) but not
// reported; dead content is allowed by policy.
func Validate(res *CompileResult) []Issue {
	var issues []Issue

	if len(res.Scenes) == 0 {
		return append(issues, Issue{
			Severity:   SeverityError,
			SceneIndex: -1,
			Message:    "script is empty or contains no recognized scenes",
		})
	}

	defined := res.DefinedTags()

	// Duplicate tags break jump addressing.
	seen := make(map[string]int)
	for i, sc := range res.Scenes {
		if sc.Tag == "" {
			continue
		}
		if first, dup := seen[sc.Tag]; dup {
			issues = append(issues, Issue{
				Severity:   SeverityError,
				SceneIndex: i,
				Message:    fmt.Sprintf("tag %q already defined on scene #%d", sc.Tag, first+1),
			})
		} else {
			seen[sc.Tag] = i
		}
	}

	for i, sc := range res.Scenes {
		switch sc.Type {
		case SceneChoice:
			sceneChoices := res.SceneChoices(i)
			switch len(sceneChoices) {
			case 0:
				issues = append(issues, Issue{
					Severity:   SeverityError,
					SceneIndex: i,
					Message:    "choice scene has no options",
				})
			case 1:
				issues = append(issues, Issue{
					Severity:   SeverityWarning,
					SceneIndex: i,
					Message:    "choice scene has only one option",
				})
			}
			for _, c := range sceneChoices {
				if c.GotoTag == "" {
					continue
				}
				if _, ok := defined[c.GotoTag]; !ok {
					issues = append(issues, Issue{
						Severity:   SeverityError,
						SceneIndex: i,
						Message:    fmt.Sprintf("option %q points at undefined tag %q", c.Label, c.GotoTag),
					})
				}
			}

		case SceneInput:
			if !inputHasContinuation(res, i, defined) {
				issues = append(issues, Issue{
					Severity:   SeverityWarning,
					SceneIndex: i,
					Message:    "input scene has no continuation after the answer",
				})
			}

		case SceneMessage:
			if sc.Text == "" {
				issues = append(issues, Issue{
					Severity:   SeverityWarning,
					SceneIndex: i,
					Message:    "message scene has no text",
				})
			}
		}
	}

	// A terminal choice whose options all dead-end is usually a
	// deliberate ending, but worth confirming.
	last := len(res.Scenes) - 1
	if res.Scenes[last].Type == SceneChoice {
		sceneChoices := res.SceneChoices(last)
		deadEnd := len(sceneChoices) > 0
		for _, c := range sceneChoices {
			if c.GotoTag != "" {
				if _, ok := defined[c.GotoTag]; ok {
					deadEnd = false
					break
				}
			}
		}
		if deadEnd {
			issues = append(issues, Issue{
				Severity:   SeverityWarning,
				SceneIndex: last,
				Message:    "last scene is a choice with no outgoing jumps; possible deliberate ending, confirm",
			})
		}
	}

	return issues
}

// ReachableScenes computes which scene indices the player can reach:
// the first scene, any non-branching successor of a reachable scene,
// and any resolved jump target of a reachable choice (plus the
// non-branching run that follows it).
func ReachableScenes(res *CompileResult) map[int]bool {
	reachable := make(map[int]bool)
	if len(res.Scenes) == 0 {
		return reachable
	}
	reachable[0] = true

	branching := func(t SceneType) bool {
		return t == SceneChoice || t == SceneInput
	}

	// Sequential flow stops at branching scenes.
	for i := 0; i < len(res.Scenes)-1; i++ {
		if reachable[i] && !branching(res.Scenes[i].Type) {
			reachable[i+1] = true
		}
	}

	defined := res.DefinedTags()
	for _, c := range res.Choices {
		target, ok := defined[c.GotoTag]
		if c.GotoTag == "" || !ok {
			continue
		}
		reachable[target] = true
		for j := target; j < len(res.Scenes)-1; j++ {
			if branching(res.Scenes[j].Type) {
				break
			}
			reachable[j+1] = true
		}
	}

	return reachable
}

func inputHasContinuation(res *CompileResult, sceneIndex int, defined map[string]int) bool {
	for _, c := range res.SceneChoices(sceneIndex) {
		if c.GotoTag != "" {
			if _, ok := defined[c.GotoTag]; ok {
				return true
			}
		}
	}
	return false
}
