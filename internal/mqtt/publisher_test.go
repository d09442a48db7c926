package mqtt

import (
	"os"
	"testing"
)

func TestBrokerURLDefault(t *testing.T) {
	os.Unsetenv("MQTT_URL")
	if got := BrokerURL(); got != "tcp://localhost:1883" {
		t.Errorf("BrokerURL = %q, want default", got)
	}
}

func TestBrokerURLFromEnv(t *testing.T) {
	os.Setenv("MQTT_URL", "tcp://broker.example:8883")
	defer os.Unsetenv("MQTT_URL")

	if got := BrokerURL(); got != "tcp://broker.example:8883" {
		t.Errorf("BrokerURL = %q", got)
	}
}

func TestConnectTimeoutError(t *testing.T) {
	var err error = &ConnectTimeoutError{}
	if err.Error() != "mqtt connect timeout" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNewPublisherDoesNotConnect(t *testing.T) {
	p := NewPublisher("test-client", "chatstory/test/events")
	if p.IsConnected() {
		t.Error("publisher should not connect on construction")
	}
}
