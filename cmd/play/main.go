// Command play compiles a script, publishes it, and plays it in the
// terminal as one interactive session. It exercises the full pipeline:
// compiler, validator, linker, registry, interpreter, stores.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chatstory/engine/internal/api"
	"github.com/chatstory/engine/internal/config"
	"github.com/chatstory/engine/internal/events"
	"github.com/chatstory/engine/internal/graph"
	"github.com/chatstory/engine/internal/mqtt"
	"github.com/chatstory/engine/internal/player"
	"github.com/chatstory/engine/internal/script"
	"github.com/chatstory/engine/internal/storage/memory"
	"github.com/chatstory/engine/internal/storage/postgres"
)

func main() {
	scriptPath := flag.String("script", "", "path to the script file")
	configPath := flag.String("config", "", "path to story.yaml (optional)")
	sessionKey := flag.String("session", "local", "session key, reuse to resume")
	dayID := flag.String("day", "day1", "day id for the published snapshot")
	storeKind := flag.String("store", "memory", "progress store: memory or postgres")
	withAPI := flag.Bool("api", false, "serve the operational API while playing")
	withMQTT := flag.Bool("mqtt", false, "mirror events onto MQTT")
	flag.Parse()

	if *scriptPath == "" {
		log.Fatal("usage: play -script <file> [-config story.yaml] [-session key]")
	}

	cfg := &config.StoryConfig{Version: 1}
	if *configPath != "" {
		var err error
		cfg, err = config.LoadStoryConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	source, err := os.ReadFile(*scriptPath)
	if err != nil {
		log.Fatalf("failed to read script: %v", err)
	}

	compiler := script.NewCompiler()
	compiler.ChoicePrompt = cfg.ChoicePrompt()
	compiler.InputPlaceholder = cfg.InputPlaceholder()

	res := compiler.Compile(string(source))
	for _, w := range res.Warnings {
		log.Printf("warning: line %d: %s", w.Line, w.Message)
	}
	if !res.OK() {
		for _, e := range res.Errors {
			log.Printf("error: line %d: %s", e.Line, e.Message)
		}
		log.Fatal("script has compile errors")
	}
	for _, issue := range script.Validate(res) {
		log.Printf("%s: %s", issue.Severity, issue.Message)
	}

	registry := graph.NewRegistry()
	day := graph.Day{Number: 1, Title: *dayID, BackgroundStyle: res.DayMeta.BackgroundStyle}
	snap, err := registry.Publish(*dayID, day, res)
	if err != nil {
		events.Emit("error", "publish.failed", "", map[string]any{"day_id": *dayID, "error": err.Error()})
		log.Fatalf("publish failed: %v", err)
	}
	events.Emit("info", "publish.completed", "", map[string]any{"day_id": *dayID, "version": snap.Version})

	var store player.ProgressStore
	var sink player.EventSink
	switch *storeKind {
	case "memory":
		mem := memory.NewStore()
		store, sink = mem, mem
	case "postgres":
		pg, err := postgres.New(cfg.Story.ID)
		if err != nil {
			log.Fatalf("postgres unavailable: %v", err)
		}
		defer pg.Close()
		events.SetPostgresClient(pg)
		store, sink = pg, pg
	default:
		log.Fatalf("unknown store: %s", *storeKind)
	}

	if *withAPI {
		api.Start(cfg.APIPort())
	}
	if *withMQTT {
		pub := mqtt.NewPublisher("chatstory-play", cfg.MQTTTopic())
		if pub.StartWithRetry() {
			defer pub.Disconnect()
			go pub.Forward(events.Subscribe())
		}
	}

	events.Emit("info", "system.startup", "play session starting", map[string]any{
		"day_id":  *dayID,
		"session": *sessionKey,
	})
	defer events.Emit("info", "system.shutdown", "", nil)

	if err := play(snap, *sessionKey, store, sink); err != nil {
		log.Fatalf("playback failed: %v", err)
	}
}

func play(snap *graph.Snapshot, sessionKey string, store player.ProgressStore, sink player.EventSink) error {
	stdin := bufio.NewScanner(os.Stdin)
	render := &terminalRenderer{}

	session, err := player.NewSession(snap, sessionKey, store,
		player.WithRenderer(render),
		player.WithEventSink(sink),
	)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := session.Run(ctx); err != nil {
		return err
	}

	for session.State() != player.StateComplete {
		switch session.State() {
		case player.StateAwaitingChoice:
			choice, ok := render.pickChoice(stdin)
			if !ok {
				return nil
			}
			if err := session.Choose(ctx, choice); err != nil {
				fmt.Println(err)
			}
		case player.StateAwaitingInput:
			fmt.Print("> ")
			if !stdin.Scan() {
				return nil
			}
			if err := session.SubmitInput(ctx, strings.TrimSpace(stdin.Text())); err != nil {
				fmt.Println(err)
			}
		default:
			return fmt.Errorf("unexpected state: %s", session.State())
		}
	}
	return nil
}

// terminalRenderer draws playback output as chat lines on stdout.
type terminalRenderer struct {
	options []string // choice ids of the options on screen
}

func (r *terminalRenderer) Render(out player.Output) {
	switch out.Kind {
	case player.OutputTypingOn:
		fmt.Println("  ...")
	case player.OutputScene:
		r.renderScene(out)
	case player.OutputInputPrompt:
		fmt.Printf("%s\n", out.Scene.Text)
	case player.OutputPauseTick:
		if out.Remaining > 0 {
			fmt.Printf("  (pause: %ds)\n", int(out.Remaining/time.Second))
		}
	case player.OutputComplete:
		fmt.Println("* day complete *")
	}
}

func (r *terminalRenderer) renderScene(out player.Output) {
	sc := out.Scene
	switch sc.Type {
	case script.SceneSystem:
		fmt.Printf("    [%s]\n", sc.Text)
	case script.SceneChoice:
		fmt.Println(sc.Text)
		r.options = r.options[:0]
		for i, c := range out.Options {
			fmt.Printf("  %d) %s\n", i+1, c.Label)
			r.options = append(r.options, c.ID)
		}
	case script.SceneMessage:
		prefix := "npc"
		if sc.Speaker == script.SpeakerMe {
			prefix = " me"
		}
		fmt.Printf("%s: %s\n", prefix, sc.Text)
	}
}

func (r *terminalRenderer) pickChoice(stdin *bufio.Scanner) (string, bool) {
	for {
		fmt.Print("choose> ")
		if !stdin.Scan() {
			return "", false
		}
		n, err := strconv.Atoi(strings.TrimSpace(stdin.Text()))
		if err == nil && n >= 1 && n <= len(r.options) {
			return r.options[n-1], true
		}
		fmt.Printf("enter a number between 1 and %d\n", len(r.options))
	}
}
