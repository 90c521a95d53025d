package alert

import (
	"testing"
	"time"

	"sentinel1090/internal/clock"
)

// Publish/Connect exercise github.com/eclipse/paho.mqtt.golang's Client
// interface, which carries enough methods (Connect, Publish, Subscribe,
// SubscribeMultiple, Unsubscribe, AddRoute, OptionsReader...) that a hand
// mock would mostly just restate the library; topicForChannel is the one
// piece of real logic this file owns, so it's what gets covered here.

func TestMQTTTopicForChannel(t *testing.T) {
	m := NewMQTTInterface(MQTTConfig{
		TopicPrefix: "sentinel1090",
		Region:      "US",
		ClientID:    "node-01",
	}, clock.NewManual(time.Unix(0, 0)))

	got := m.topicForChannel("ops")
	want := "sentinel1090/US/c/ops/node-01"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMQTTTopicForChannelDiffersByChannel(t *testing.T) {
	m := NewMQTTInterface(MQTTConfig{TopicPrefix: "p", Region: "r", ClientID: "c"}, clock.NewManual(time.Unix(0, 0)))
	a := m.topicForChannel("alpha")
	b := m.topicForChannel("bravo")
	if a == b {
		t.Fatalf("expected distinct topics per channel, got %q for both", a)
	}
}

func TestMQTTInterfaceStartsUnhealthy(t *testing.T) {
	m := NewMQTTInterface(MQTTConfig{}, clock.NewManual(time.Unix(0, 0)))
	if m.Healthy() {
		t.Fatalf("expected a never-connected interface to report unhealthy")
	}
}
