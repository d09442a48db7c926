package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// session
	"session.started":   {},
	"session.resumed":   {},
	"session.completed": {},

	// playback
	"scene.displayed": {},
	"typing.started":  {},
	"typing.stopped":  {},
	"pause.started":   {},
	"pause.completed": {},

	// branching
	"choice.presented": {},
	"choice.taken":     {},
	"input.presented":  {},
	"input.submitted":  {},

	// authoring pipeline
	"compile.completed": {},
	"publish.completed": {},
	"publish.failed":    {},

	// infrastructure
	"storage.error":     {},
	"mqtt.connected":    {},
	"mqtt.disconnected": {},
	"mqtt.error":        {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
