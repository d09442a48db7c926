package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chatstory/engine/internal/events"
	"github.com/chatstory/engine/internal/graph"
	"github.com/chatstory/engine/internal/script"
)

// State is the interpreter's lifecycle state.
type State string

const (
	StateIdle           State = "idle"
	StateDisplaying     State = "displaying"
	StateAwaitingChoice State = "awaiting_choice"
	StateAwaitingInput  State = "awaiting_input"
	StatePaused         State = "paused"
	StateComplete       State = "complete"
)

// ErrAdvanceInFlight is returned when a second advance is attempted
// while one is still running. Advancement of a single session is never
// re-entrant; callers retry after the in-flight call returns.
var ErrAdvanceInFlight = errors.New("player: advance already in flight")

// ErrSessionComplete is returned for any input arriving after the
// session reached its terminal state.
var ErrSessionComplete = errors.New("player: session is complete")

// OutputKind tags a rendered playback event.
type OutputKind string

const (
	OutputTypingOn    OutputKind = "typing_on"
	OutputTypingOff   OutputKind = "typing_off"
	OutputScene       OutputKind = "scene"
	OutputOptions     OutputKind = "options"
	OutputInputPrompt OutputKind = "input_prompt"
	OutputPauseTick   OutputKind = "pause_tick"
	OutputComplete    OutputKind = "complete"
)

// Output is one rendered playback event delivered to the Renderer.
type Output struct {
	Kind      OutputKind
	Scene     *graph.Scene
	Options   []*graph.Choice
	Remaining time.Duration // pause countdown
	Replayed  bool          // scene restored on resume, timing skipped
}

// Renderer consumes playback output. Implementations decide how scenes
// appear; the interpreter only decides what and when.
type Renderer interface {
	Render(Output)
}

// RenderFunc adapts a function to the Renderer interface.
type RenderFunc func(Output)

func (f RenderFunc) Render(o Output) { f(o) }

// Inter-scene beats, matching the reference playback feel.
const (
	messageBeat   = 300 * time.Millisecond
	inputEchoBeat = 500 * time.Millisecond
	pauseTickStep = time.Second
)

// Session is a single-user playback interpreter over one published
// snapshot. One advance runs at a time; concurrent calls are rejected
// with ErrAdvanceInFlight. The snapshot itself is shared and read-only.
type Session struct {
	snap   *graph.Snapshot
	key    string
	store  ProgressStore
	sink   EventSink
	clock  Clock
	render Renderer

	mu        sync.Mutex
	advancing bool
	state     State
	currentID string
	flags     map[string]any
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) SessionOption {
	return func(s *Session) { s.clock = c }
}

// WithRenderer sets the output consumer.
func WithRenderer(r Renderer) SessionOption {
	return func(s *Session) { s.render = r }
}

// WithEventSink sets the analytics collaborator.
func WithEventSink(sink EventSink) SessionOption {
	return func(s *Session) { s.sink = sink }
}

// NewSession creates an interpreter for one session key. If the store
// holds a position for the key, the session resumes there: every scene
// strictly before the saved position is replayed as already shown,
// without re-running its timing.
func NewSession(snap *graph.Snapshot, sessionKey string, store ProgressStore, opts ...SessionOption) (*Session, error) {
	s := &Session{
		snap:   snap,
		key:    sessionKey,
		store:  store,
		clock:  RealClock(),
		render: RenderFunc(func(Output) {}),
		state:  StateIdle,
		flags:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}

	sceneID, flags, completed, found, err := store.LoadPosition(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("player: load position: %w", err)
	}

	switch {
	case found && completed:
		s.state = StateComplete
		mergeFlags(s.flags, flags)

	case found && sceneID != "":
		if _, ok := snap.Scene(sceneID); !ok {
			// Saved position points outside this snapshot (republish
			// drift). Start over rather than wedge the session.
			s.currentID = snap.FirstSceneID()
			s.emit("session.started", nil)
			break
		}
		mergeFlags(s.flags, flags)
		s.replayBefore(sceneID)
		s.currentID = sceneID
		s.emit("session.resumed", map[string]any{"scene_id": sceneID})

	default:
		s.currentID = snap.FirstSceneID()
		s.emit("session.started", nil)
	}

	return s, nil
}

// replayBefore renders every scene ahead of the resume point as
// already displayed. No delays run and nothing is persisted.
func (s *Session) replayBefore(sceneID string) {
	idx := s.snap.SceneIndex(sceneID)
	if idx <= 0 {
		return
	}
	for _, id := range s.snap.SceneOrder()[:idx] {
		sc, ok := s.snap.Scene(id)
		if !ok {
			continue
		}
		out := Output{Kind: OutputScene, Scene: sc, Replayed: true}
		if sc.Type == script.SceneChoice {
			out.Options = s.snap.Options(sc.ID)
		}
		s.render.Render(out)
	}
}

// State returns the current interpreter state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentSceneID returns the scene the interpreter stands at.
func (s *Session) CurrentSceneID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Flags returns a copy of the session's flag state.
func (s *Session) Flags() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}

// Run plays from the current position until the session blocks on a
// choice, input, or completion. Call once after NewSession; after a
// block, playback continues through Choose or SubmitInput.
func (s *Session) Run(ctx context.Context) error {
	if err := s.beginAdvance(); err != nil {
		return err
	}
	defer s.endAdvance()

	if s.State() == StateComplete {
		return ErrSessionComplete
	}
	return s.play(ctx)
}

// Choose resolves an AwaitingChoice block: merges the choice's flags,
// records the analytics event, jumps to the choice's target, and keeps
// playing until the next block.
func (s *Session) Choose(ctx context.Context, choiceID string) error {
	if err := s.beginAdvance(); err != nil {
		return err
	}
	defer s.endAdvance()

	switch s.State() {
	case StateComplete:
		return ErrSessionComplete
	case StateAwaitingChoice:
	default:
		return fmt.Errorf("player: not awaiting a choice (state %s)", s.State())
	}

	sceneID := s.CurrentSceneID()
	var taken *graph.Choice
	for _, c := range s.snap.Options(sceneID) {
		if c.ID == choiceID {
			taken = c
			break
		}
	}
	if taken == nil {
		return fmt.Errorf("player: choice %q not available on scene %s", choiceID, sceneID)
	}

	s.mu.Lock()
	mergeFlags(s.flags, taken.SetFlags)
	s.mu.Unlock()

	// Analytics is fire-and-forget: log the failure, keep playing.
	if s.sink != nil {
		if err := s.sink.RecordChoiceTaken(s.key, sceneID, taken.ID); err != nil {
			s.emit("storage.error", map[string]any{"error": err.Error()})
		}
	}
	s.emit("choice.taken", map[string]any{"scene_id": sceneID, "choice_id": taken.ID})

	sc, ok := s.snap.Scene(sceneID)
	if !ok {
		return s.completeSession()
	}
	stop, err := s.advance(sc, taken)
	if stop || err != nil {
		return err
	}
	return s.play(ctx)
}

// SubmitInput resolves an AwaitingInput block: stores the value under a
// scene-scoped flag, echoes it back as a player message, then advances
// as the input's implicit single continuation dictates.
func (s *Session) SubmitInput(ctx context.Context, value string) error {
	if err := s.beginAdvance(); err != nil {
		return err
	}
	defer s.endAdvance()

	switch s.State() {
	case StateComplete:
		return ErrSessionComplete
	case StateAwaitingInput:
	default:
		return fmt.Errorf("player: not awaiting input (state %s)", s.State())
	}

	sceneID := s.CurrentSceneID()
	sc, ok := s.snap.Scene(sceneID)
	if !ok {
		return s.completeSession()
	}

	s.mu.Lock()
	s.flags["input_"+sceneID] = value
	s.mu.Unlock()
	s.emit("input.submitted", map[string]any{"scene_id": sceneID})

	echo := &graph.Scene{
		ID:        "echo:" + sceneID,
		SortIndex: -1,
		Type:      script.SceneMessage,
		Speaker:   script.SpeakerMe,
		Text:      value,
	}
	s.render.Render(Output{Kind: OutputScene, Scene: echo})
	if err := s.wait(ctx, inputEchoBeat); err != nil {
		return err
	}

	var taken *graph.Choice
	for _, c := range s.snap.SceneChoices(sceneID) {
		if c.IsInput() {
			taken = c
			break
		}
	}
	if taken != nil {
		s.mu.Lock()
		mergeFlags(s.flags, taken.SetFlags)
		s.mu.Unlock()
	}

	stop, err := s.advance(sc, taken)
	if stop || err != nil {
		return err
	}
	return s.play(ctx)
}

// play processes scenes until the session blocks or completes.
func (s *Session) play(ctx context.Context) error {
	for {
		sceneID := s.CurrentSceneID()
		sc, ok := s.snap.Scene(sceneID)
		if !ok {
			// Scene id absent from the graph: data corruption. End the
			// session defensively; a stuck session is worse than a
			// silently ended one.
			s.emit("system.error", map[string]any{"scene_id": sceneID, "reason": "scene missing from graph"})
			return s.completeSession()
		}

		s.setState(StateDisplaying)

		switch sc.Type {
		case script.SceneMessage, script.SceneSystem:
			if err := s.playMessage(ctx, sc); err != nil {
				return err
			}

		case script.SceneTyping:
			d := sc.Meta.TypingDelay
			if d == 0 {
				d = script.DefaultTypingIndicatorMS
			}
			s.render.Render(Output{Kind: OutputTypingOn, Scene: sc})
			if err := s.wait(ctx, millis(d)); err != nil {
				return err
			}
			s.render.Render(Output{Kind: OutputTypingOff})

		case script.ScenePause:
			if err := s.playPause(ctx, sc); err != nil {
				return err
			}

		case script.SceneChoice:
			s.render.Render(Output{Kind: OutputScene, Scene: sc, Options: s.snap.Options(sc.ID)})
			s.setState(StateAwaitingChoice)
			s.emit("choice.presented", map[string]any{"scene_id": sc.ID})
			return nil

		case script.SceneInput:
			s.render.Render(Output{Kind: OutputInputPrompt, Scene: sc})
			s.setState(StateAwaitingInput)
			s.emit("input.presented", map[string]any{"scene_id": sc.ID})
			return nil
		}

		stop, err := s.advance(sc, nil)
		if stop || err != nil {
			return err
		}
	}
}

func (s *Session) playMessage(ctx context.Context, sc *graph.Scene) error {
	// Typing delay applies to npc/me messages only; system lines land
	// without a typing indicator unless the script asks for one.
	d := sc.Meta.TypingDelay
	if d == 0 && sc.Type == script.SceneMessage {
		d = script.DefaultTypingDelayMS
	}
	if sc.Type == script.SceneMessage && d > 0 {
		s.render.Render(Output{Kind: OutputTypingOn, Scene: sc})
		if err := s.wait(ctx, millis(d)); err != nil {
			return err
		}
		s.render.Render(Output{Kind: OutputTypingOff})
	}
	if md := sc.Meta.MessageDelay; md > 0 {
		if err := s.wait(ctx, millis(md)); err != nil {
			return err
		}
	}

	s.render.Render(Output{Kind: OutputScene, Scene: sc})
	s.emit("scene.displayed", map[string]any{"scene_id": sc.ID})
	return s.wait(ctx, messageBeat)
}

// playPause holds the session in Paused for the configured duration,
// emitting a countdown tick per second. The clock drives resumption;
// nothing else can advance a paused session.
func (s *Session) playPause(ctx context.Context, sc *graph.Scene) error {
	d := sc.Meta.PauseDuration
	if d == 0 {
		d = script.DefaultPauseMS
	}
	remaining := millis(d)

	s.setState(StatePaused)
	s.emit("pause.started", map[string]any{"scene_id": sc.ID, "duration_ms": d})
	s.render.Render(Output{Kind: OutputPauseTick, Scene: sc, Remaining: remaining})

	for remaining > 0 {
		step := pauseTickStep
		if remaining < step {
			step = remaining
		}
		if err := s.wait(ctx, step); err != nil {
			return err
		}
		remaining -= step
		s.render.Render(Output{Kind: OutputPauseTick, Scene: sc, Remaining: remaining})
	}

	s.emit("pause.completed", map[string]any{"scene_id": sc.ID})
	s.setState(StateDisplaying)
	return nil
}

// advance resolves the next scene: a taken choice's target first, then
// the scene's explicit override, then default order. No next scene
// means the session is complete. Every successful advance persists the
// new position before playback continues.
func (s *Session) advance(sc *graph.Scene, taken *graph.Choice) (stop bool, err error) {
	next := ""
	switch {
	case taken != nil && taken.GotoSceneID != "":
		next = taken.GotoSceneID
	case sc.NextSceneID != "":
		next = sc.NextSceneID
	default:
		next = s.snap.NextInOrder(sc.ID)
	}

	if next == "" {
		return true, s.completeSession()
	}

	s.mu.Lock()
	s.currentID = next
	s.mu.Unlock()
	if err := s.persist(false); err != nil {
		return true, err
	}
	return false, nil
}

func (s *Session) completeSession() error {
	s.setState(StateComplete)
	err := s.persist(true)
	s.render.Render(Output{Kind: OutputComplete})
	s.emit("session.completed", nil)
	return err
}

// persist is the interpreter's side effect: position and flags go to
// the store on every advance. Store failures are fatal to the call;
// the last successfully persisted position remains the resume point.
func (s *Session) persist(completed bool) error {
	s.mu.Lock()
	sceneID := s.currentID
	flags := make(map[string]any, len(s.flags))
	for k, v := range s.flags {
		flags[k] = v
	}
	s.mu.Unlock()

	if err := s.store.SavePosition(s.key, sceneID, flags, completed); err != nil {
		return fmt.Errorf("player: save position: %w", err)
	}
	return nil
}

func (s *Session) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}

func (s *Session) beginAdvance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.advancing {
		return ErrAdvanceInFlight
	}
	s.advancing = true
	return nil
}

func (s *Session) endAdvance() {
	s.mu.Lock()
	s.advancing = false
	s.mu.Unlock()
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) emit(name string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["session_key"] = s.key
	events.Emit("info", name, "", fields)
}

func mergeFlags(dst map[string]any, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
