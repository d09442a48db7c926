package script

// SceneType identifies the kind of a compiled scene. Exactly one kind
// per scene.
type SceneType string

const (
	SceneMessage SceneType = "message"
	SceneTyping  SceneType = "typing"
	ScenePause   SceneType = "pause"
	SceneChoice  SceneType = "choice"
	SceneInput   SceneType = "input"
	SceneSystem  SceneType = "system"
)

// Speaker identifies who a message scene is attributed to.
// Empty for scene types that have no speaker.
type Speaker string

const (
	SpeakerNPC    Speaker = "npc"
	SpeakerMe     Speaker = "me"
	SpeakerSystem Speaker = "system"
)

// Meta carries per-scene timing and display directives. A zero value
// means "use the type default".
// All durations are milliseconds.
type Meta struct {
	TypingDelay      int    `json:"typing_delay,omitempty"`
	MessageDelay     int    `json:"message_delay,omitempty"`
	PauseDuration    int    `json:"pause_duration,omitempty"`
	InputPlaceholder string `json:"input_placeholder,omitempty"`
}

// IsZero reports whether no directive is set.
func (m Meta) IsZero() bool {
	return m == Meta{}
}

// Scene is one atomic unit of the narrative timeline as produced by the
// compiler. SortIndex is its position in the default sequence.
type Scene struct {
	SortIndex int       `json:"sort_index"`
	Type      SceneType `json:"type"`
	Speaker   Speaker   `json:"speaker,omitempty"`
	Text      string    `json:"text,omitempty"`
	Meta      Meta      `json:"meta,omitempty"`
	Tag       string    `json:"tag,omitempty"`
}

// InputChoiceLabel marks the single synthetic branch attached to an
// input scene. It carries the continuation but is never shown to the
// player as a selectable option.
const InputChoiceLabel = "__input__"

// Choice is one selectable branch attached to a scene. SceneIndex
// refers back into the compiled scene list; linking resolves GotoTag to
// a concrete scene id.
type Choice struct {
	SceneIndex int            `json:"scene_index"`
	Label      string         `json:"label"`
	GotoTag    string         `json:"goto_tag,omitempty"`
	SetFlags   map[string]any `json:"set_flags,omitempty"`
	SortIndex  int            `json:"sort_index"`
}

// IsInput reports whether this is the synthetic input continuation.
func (c Choice) IsInput() bool {
	return c.Label == InputChoiceLabel
}

// DayMeta is day-level metadata collected during compilation.
type DayMeta struct {
	BackgroundStyle string `json:"background_style,omitempty"`
}

// Error is a hard compile diagnostic. Errors block publishing but do
// not stop the compiler from processing subsequent lines.
type Error struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
	Content string `json:"content,omitempty"`
}

// Warning is a soft compile diagnostic.
type Warning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// CompileResult is the full output of one compiler pass over a script.
type CompileResult struct {
	Scenes   []Scene   `json:"scenes"`
	Choices  []Choice  `json:"choices"`
	DayMeta  DayMeta   `json:"day_meta"`
	Errors   []Error   `json:"errors,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// OK reports whether the script compiled without hard errors.
func (r *CompileResult) OK() bool {
	return len(r.Errors) == 0
}

// DefinedTags returns the set of tags defined on any scene.
func (r *CompileResult) DefinedTags() map[string]int {
	tags := make(map[string]int)
	for i, sc := range r.Scenes {
		if sc.Tag != "" {
			if _, dup := tags[sc.Tag]; !dup {
				tags[sc.Tag] = i
			}
		}
	}
	return tags
}

// SceneChoices returns the choices attached to the scene at the given
// index, in declaration order.
func (r *CompileResult) SceneChoices(sceneIndex int) []Choice {
	var out []Choice
	for _, c := range r.Choices {
		if c.SceneIndex == sceneIndex {
			out = append(out, c)
		}
	}
	return out
}
