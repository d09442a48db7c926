package script

import (
	"strings"
	"testing"
)

const sampleScript = `[bg night]
// day one, opening
NPC: Hey. You awake? #tag:start
...
ME: It's 3am.
[pause 2s]
NPC: I need your help.

CHOICE:
- Of course -> goto agree [set flag:helpful]
- Go to sleep -> goto refuse

NPC: Thank you. #tag:agree
INPUT: What should I bring? -> goto packed [set asked]
SYS: Sam is typing from a new location #tag:packed
NPC: Forget it. #tag:refuse
`

func compileSample(t *testing.T) *CompileResult {
	t.Helper()
	res := Compile(sampleScript)
	if !res.OK() {
		t.Fatalf("sample script should compile cleanly, got errors: %+v", res.Errors)
	}
	return res
}

func TestCompileSampleShape(t *testing.T) {
	res := compileSample(t)

	wantTypes := []SceneType{
		SceneMessage, // Hey. You awake?
		SceneTyping,
		SceneMessage, // It's 3am.
		ScenePause,
		SceneMessage, // I need your help.
		SceneChoice,
		SceneMessage, // Thank you.
		SceneInput,
		SceneSystem,  // Sam is typing...
		SceneMessage, // Forget it.
	}
	if len(res.Scenes) != len(wantTypes) {
		t.Fatalf("got %d scenes, want %d", len(res.Scenes), len(wantTypes))
	}
	for i, want := range wantTypes {
		if res.Scenes[i].Type != want {
			t.Errorf("scene #%d type = %s, want %s", i, res.Scenes[i].Type, want)
		}
		if res.Scenes[i].SortIndex != i {
			t.Errorf("scene #%d SortIndex = %d", i, res.Scenes[i].SortIndex)
		}
	}

	if res.DayMeta.BackgroundStyle != "night" {
		t.Errorf("background = %q, want night", res.DayMeta.BackgroundStyle)
	}

	tags := res.DefinedTags()
	for _, tag := range []string{"start", "agree", "packed", "refuse"} {
		if _, ok := tags[tag]; !ok {
			t.Errorf("tag %q not recorded", tag)
		}
	}
}

func TestCompileSampleChoices(t *testing.T) {
	res := compileSample(t)

	// Two options on the choice scene plus the input continuation.
	if len(res.Choices) != 3 {
		t.Fatalf("got %d choices, want 3", len(res.Choices))
	}

	opts := res.SceneChoices(5)
	if len(opts) != 2 {
		t.Fatalf("choice scene has %d options, want 2", len(opts))
	}
	if opts[0].Label != "Of course" || opts[0].GotoTag != "agree" {
		t.Errorf("first option = %+v", opts[0])
	}
	if opts[0].SetFlags["helpful"] != true {
		t.Errorf("first option flags = %v", opts[0].SetFlags)
	}
	if opts[1].SortIndex != 1 {
		t.Errorf("second option SortIndex = %d, want 1", opts[1].SortIndex)
	}

	inputChoices := res.SceneChoices(7)
	if len(inputChoices) != 1 {
		t.Fatalf("input scene has %d choices, want 1", len(inputChoices))
	}
	if !inputChoices[0].IsInput() {
		t.Errorf("input continuation label = %q, want %q", inputChoices[0].Label, InputChoiceLabel)
	}
	if inputChoices[0].GotoTag != "packed" {
		t.Errorf("input continuation target = %q, want packed", inputChoices[0].GotoTag)
	}
	if inputChoices[0].SetFlags["asked"] != true {
		t.Errorf("input continuation flags = %v", inputChoices[0].SetFlags)
	}
}

func TestTypingSceneDuration(t *testing.T) {
	res := Compile("...\n")
	if len(res.Scenes) != 1 || res.Scenes[0].Type != SceneTyping {
		t.Fatalf("unexpected scenes: %+v", res.Scenes)
	}
	if res.Scenes[0].Meta.TypingDelay != DefaultTypingIndicatorMS {
		t.Errorf("default typing duration = %d, want %d", res.Scenes[0].Meta.TypingDelay, DefaultTypingIndicatorMS)
	}

	res = Compile("[typing 2500]\n...\n")
	if res.Scenes[0].Meta.TypingDelay != 2500 {
		t.Errorf("typing duration = %d, want 2500", res.Scenes[0].Meta.TypingDelay)
	}
}

func TestPendingModifiersApplyToNextMessage(t *testing.T) {
	res := Compile("[delay 1500]\n[typing 600]\nNPC: slow reply\nNPC: normal reply\n")
	if !res.OK() {
		t.Fatalf("errors: %+v", res.Errors)
	}

	first := res.Scenes[0]
	if first.Meta.MessageDelay != 1500 {
		t.Errorf("first message delay = %d, want 1500", first.Meta.MessageDelay)
	}
	if first.Meta.TypingDelay != 600 {
		t.Errorf("first message typing = %d, want 600", first.Meta.TypingDelay)
	}

	// Modifiers are consumed, not sticky.
	second := res.Scenes[1]
	if !second.Meta.IsZero() {
		t.Errorf("second message meta = %+v, want zero", second.Meta)
	}
}

func TestTypingSceneConsumesTypingRateOnly(t *testing.T) {
	// A pending delay survives an intervening typing scene and still
	// lands on the next message.
	res := Compile("[delay 900]\n[typing 700]\n...\nNPC: here\n")
	if res.Scenes[0].Meta.TypingDelay != 700 {
		t.Errorf("typing scene duration = %d, want 700", res.Scenes[0].Meta.TypingDelay)
	}
	if res.Scenes[1].Meta.MessageDelay != 900 {
		t.Errorf("message delay = %d, want 900", res.Scenes[1].Meta.MessageDelay)
	}
	if res.Scenes[1].Meta.TypingDelay != 0 {
		t.Errorf("message typing = %d, want 0 (consumed by typing scene)", res.Scenes[1].Meta.TypingDelay)
	}
}

func TestBlankLineBeforeFirstOptionKeepsBlockOpen(t *testing.T) {
	src := strings.Join([]string{
		"NPC: pick one #tag:top",
		"CHOICE:",
		"",
		"- A -> goto top",
		"- B -> goto top",
		"",
		"NPC: after",
	}, "\n")

	res := Compile(src)
	if !res.OK() {
		t.Fatalf("errors: %+v", res.Errors)
	}
	if got := len(res.SceneChoices(1)); got != 2 {
		t.Errorf("choice scene has %d options, want 2", got)
	}
}

func TestBlankLineClosesBlockAfterOptions(t *testing.T) {
	src := strings.Join([]string{
		"NPC: pick #tag:top",
		"CHOICE:",
		"- A -> goto top",
		"",
		"- Stray -> goto top",
	}, "\n")

	res := Compile(src)
	if res.OK() {
		t.Fatal("expected an error for the option after the block closed")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %+v", len(res.Errors), res.Errors)
	}
	if res.Errors[0].Line != 5 {
		t.Errorf("error line = %d, want 5", res.Errors[0].Line)
	}
	if !strings.Contains(res.Errors[0].Message, "outside a CHOICE: block") {
		t.Errorf("error message = %q", res.Errors[0].Message)
	}
}

func TestOptionBeforeAnyChoiceIsError(t *testing.T) {
	res := Compile("- First thing -> goto nowhere\n")
	if res.OK() {
		t.Fatal("expected error for option with no open block")
	}
}

func TestUnresolvedGotoTag(t *testing.T) {
	src := strings.Join([]string{
		"NPC: hm #tag:real",
		"CHOICE:",
		"- Fine -> goto real",
		"- Nope -> goto imaginary",
	}, "\n")

	res := Compile(src)
	if res.OK() {
		t.Fatal("expected error for undefined goto tag")
	}
	e := res.Errors[0]
	if !strings.Contains(e.Message, `"imaginary"`) {
		t.Errorf("error should name the tag, got %q", e.Message)
	}
	if !strings.Contains(e.Content, `"Nope"`) {
		t.Errorf("error should name the option label, got %q", e.Content)
	}
}

func TestUnknownLineWarning(t *testing.T) {
	res := Compile("some stray prose here\n")
	if len(res.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(res.Warnings))
	}
	if res.Warnings[0].Line != 1 {
		t.Errorf("warning line = %d, want 1", res.Warnings[0].Line)
	}

	// Bracketed and dash-prefixed junk stays quiet: it is usually a
	// typo of a known directive and the author will see it missing.
	res = Compile("[weird directive]\n")
	if len(res.Warnings) != 0 {
		t.Errorf("bracketed junk warned: %+v", res.Warnings)
	}
}

func TestCompileEmptySource(t *testing.T) {
	res := Compile("")
	if len(res.Scenes) != 0 || len(res.Errors) != 0 {
		t.Errorf("empty source: scenes=%d errors=%d", len(res.Scenes), len(res.Errors))
	}
}

func TestCompilerCustomPrompts(t *testing.T) {
	c := NewCompiler()
	c.ChoicePrompt = "What now?"
	c.InputPlaceholder = "Say something"

	res := c.Compile("NPC: x #tag:t\nCHOICE:\n- Go -> goto t\n\nINPUT: Name? -> goto t\n")
	if !res.OK() {
		t.Fatalf("errors: %+v", res.Errors)
	}
	if res.Scenes[1].Text != "What now?" {
		t.Errorf("choice prompt = %q", res.Scenes[1].Text)
	}
	if res.Scenes[2].Meta.InputPlaceholder != "Say something" {
		t.Errorf("input placeholder = %q", res.Scenes[2].Meta.InputPlaceholder)
	}
}
