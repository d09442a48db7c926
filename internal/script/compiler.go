package script

import (
	"fmt"
	"strings"
)

// Type defaults applied when a scene carries no explicit directive.
const (
	DefaultTypingIndicatorMS = 1200
	DefaultTypingDelayMS     = 800
	DefaultPauseMS           = 10000
)

// Compiler turns raw script text into scenes and choices. The prompt
// strings are what choice and input scenes display when the script
// itself provides none.
type Compiler struct {
	ChoicePrompt     string
	InputPlaceholder string
}

// NewCompiler returns a compiler with the stock prompt strings.
func NewCompiler() *Compiler {
	return &Compiler{
		ChoicePrompt:     "Choose an action",
		InputPlaceholder: "Type your answer...",
	}
}

// Compile is shorthand for NewCompiler().Compile.
func Compile(source string) *CompileResult {
	return NewCompiler().Compile(source)
}

// parserState is the cross-line state of one compiler pass. It is a
// value: each line handler takes the current state and returns the
// next one, so sequencing stays explicit.
type parserState struct {
	pendingDelayMS   int
	pendingTypingMS  int
	inChoiceBlock    bool
	choiceSceneIndex int
	choiceSortIndex  int
}

func initialState() parserState {
	return parserState{choiceSceneIndex: -1}
}

// closeChoiceBlock returns the state with no open block.
func (st parserState) closeChoiceBlock() parserState {
	st.inChoiceBlock = false
	st.choiceSceneIndex = -1
	st.choiceSortIndex = 0
	return st
}

// Compile runs a single pass over the script. Hard errors are
// collected, not thrown: parsing always continues to the end of the
// text so one report covers the whole script.
func (c *Compiler) Compile(source string) *CompileResult {
	res := &CompileResult{}
	st := initialState()

	for i, raw := range strings.Split(source, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)

		if line == "" {
			// A blank line closes a choice block, but only once at
			// least one option has been recorded. A blank line between
			// CHOICE: and its first option keeps the block open.
			if st.inChoiceBlock && st.choiceSortIndex > 0 {
				st = st.closeChoiceBlock()
			}
			continue
		}

		st = c.compileLine(res, st, Classify(line), line, lineNo)
	}

	c.checkGotoTags(res)
	return res
}

func (c *Compiler) compileLine(res *CompileResult, st parserState, cl Line, line string, lineNo int) parserState {
	switch cl.Kind {
	case LineComment:
		return st

	case LineBackground:
		// Day-level metadata, last writer wins.
		res.DayMeta.BackgroundStyle = cl.Style
		return st

	case LineDelay:
		st.pendingDelayMS = cl.DurationMS
		return st

	case LineTypingRate:
		st.pendingTypingMS = cl.DurationMS
		return st

	case LineTyping:
		d := st.pendingTypingMS
		if d == 0 {
			d = DefaultTypingIndicatorMS
		}
		st.pendingTypingMS = 0
		appendScene(res, Scene{
			Type: SceneTyping,
			Meta: Meta{TypingDelay: d},
		})
		return st

	case LinePause:
		appendScene(res, Scene{
			Type: ScenePause,
			Meta: Meta{PauseDuration: cl.DurationMS},
		})
		return st

	case LineChoiceOpen:
		appendScene(res, Scene{
			Type: SceneChoice,
			Text: c.ChoicePrompt,
		})
		st.inChoiceBlock = true
		st.choiceSceneIndex = len(res.Scenes) - 1
		st.choiceSortIndex = 0
		return st

	case LineChoiceOption:
		if !st.inChoiceBlock || st.choiceSceneIndex < 0 {
			res.Errors = append(res.Errors, Error{
				Line:    lineNo,
				Message: "choice option outside a CHOICE: block",
				Content: line,
			})
			return st
		}
		res.Choices = append(res.Choices, Choice{
			SceneIndex: st.choiceSceneIndex,
			Label:      cl.Label,
			GotoTag:    cl.GotoTag,
			SetFlags:   ParseFlagSpec(cl.FlagSpec),
			SortIndex:  st.choiceSortIndex,
		})
		st.choiceSortIndex++
		return st

	case LineInput:
		appendScene(res, Scene{
			Type: SceneInput,
			Text: cl.Text,
			Meta: Meta{InputPlaceholder: c.InputPlaceholder},
			Tag:  cl.Tag,
		})
		// Input always has exactly one continuation, modeled as a
		// synthetic choice that never reaches the player as an option.
		res.Choices = append(res.Choices, Choice{
			SceneIndex: len(res.Scenes) - 1,
			Label:      InputChoiceLabel,
			GotoTag:    cl.GotoTag,
			SetFlags:   ParseFlagSpec(cl.FlagSpec),
			SortIndex:  0,
		})
		return st

	case LineMessage:
		sceneType := SceneMessage
		if cl.Speaker == SpeakerSystem {
			sceneType = SceneSystem
		}
		sc := Scene{
			Type:    sceneType,
			Speaker: cl.Speaker,
			Text:    cl.Text,
			Tag:     cl.Tag,
		}
		// Pending modifiers apply to the next message-producing line
		// and are consumed by it.
		if st.pendingDelayMS > 0 {
			sc.Meta.MessageDelay = st.pendingDelayMS
			st.pendingDelayMS = 0
		}
		if st.pendingTypingMS > 0 {
			sc.Meta.TypingDelay = st.pendingTypingMS
			st.pendingTypingMS = 0
		}
		appendScene(res, sc)
		return st

	default:
		// Permissive about unparseable prose, but never silent.
		if !strings.HasPrefix(line, "[") && !strings.HasPrefix(line, "-") {
			res.Warnings = append(res.Warnings, Warning{
				Line:    lineNo,
				Message: fmt.Sprintf("unrecognized line ignored: %q", truncate(line, 50)),
			})
		}
		return st
	}
}

// checkGotoTags verifies every collected jump target against the tags
// defined on any scene. Runs after the full pass so errors name every
// unresolved tag at once.
func (c *Compiler) checkGotoTags(res *CompileResult) {
	defined := res.DefinedTags()
	for _, choice := range res.Choices {
		if choice.GotoTag == "" {
			continue
		}
		if _, ok := defined[choice.GotoTag]; !ok {
			res.Errors = append(res.Errors, Error{
				Line:    0,
				Message: fmt.Sprintf("goto tag %q not defined in script", choice.GotoTag),
				Content: fmt.Sprintf("option %q", choice.Label),
			})
		}
	}
}

func appendScene(res *CompileResult, sc Scene) {
	sc.SortIndex = len(res.Scenes)
	res.Scenes = append(res.Scenes, sc)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
