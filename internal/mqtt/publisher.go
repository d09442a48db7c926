// Package mqtt mirrors engine events onto an MQTT broker so external
// dashboards and bots can follow playback live. Publishing is
// fire-and-forget; a broker outage never blocks a session.
package mqtt

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/chatstory/engine/internal/events"
)

// BrokerURL returns the MQTT broker URL from env or default.
func BrokerURL() string {
	if url := os.Getenv("MQTT_URL"); url != "" {
		return url
	}
	return "tcp://localhost:1883"
}

// Publisher wraps the Paho MQTT client for the engine's event mirror.
type Publisher struct {
	client paho.Client
	topic  string
	mu     sync.Mutex
}

// NewPublisher creates a publisher for the given topic but does not
// connect.
func NewPublisher(clientID, topic string) *Publisher {
	opts := paho.NewClientOptions().
		AddBroker(BrokerURL()).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	return &Publisher{
		client: paho.NewClient(opts),
		topic:  topic,
	}
}

// Connect attempts to connect to the broker.
// Returns an error if connection fails, but does not block indefinitely.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return &ConnectTimeoutError{}
	}
	if err := token.Error(); err != nil {
		return err
	}
	return nil
}

// Publish sends a payload at QoS 0. Delivery is best effort by design;
// the return error only reflects local client failures.
func (p *Publisher) Publish(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	token := p.client.Publish(p.topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

// RecordChoiceTaken publishes a choice analytics record, satisfying
// the interpreter's event-sink contract.
func (p *Publisher) RecordChoiceTaken(sessionKey, sceneID, choiceID string) error {
	payload, err := json.Marshal(map[string]string{
		"event":       "choice.taken",
		"session_key": sessionKey,
		"scene_id":    sceneID,
		"choice_id":   choiceID,
	})
	if err != nil {
		return err
	}
	return p.Publish(payload)
}

// Forward drains an event subscription onto the broker until the
// subscriber channel closes. Run it in its own goroutine.
func (p *Publisher) Forward(sub events.Subscriber) {
	for e := range sub {
		payload, err := json.Marshal(e)
		if err != nil {
			continue
		}
		if err := p.Publish(payload); err != nil {
			log.Printf("mqtt: publish failed: %v", err)
		}
	}
}

// Disconnect cleanly disconnects from the broker.
func (p *Publisher) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.client.Disconnect(1000)
}

// IsConnected returns true if the client is connected.
func (p *Publisher) IsConnected() bool {
	return p.client.IsConnected()
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// StartWithRetry attempts to connect, logging errors but not crashing.
// Returns true if connected, false otherwise.
func (p *Publisher) StartWithRetry() bool {
	if err := p.Connect(); err != nil {
		log.Printf("mqtt: failed to connect to %s: %v", BrokerURL(), err)
		return false
	}

	log.Printf("mqtt: connected, publishing to %s", p.topic)
	return true
}
