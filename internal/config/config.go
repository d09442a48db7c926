package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StoryConfig is the engine's story.yaml: identity of the story being
// served plus playback tuning. Zero values fall back to the playback
// defaults via the accessor methods.
type StoryConfig struct {
	Version int `yaml:"version"`
	Story   struct {
		ID    string `yaml:"id"`
		Title string `yaml:"title"`
	} `yaml:"story"`
	Playback struct {
		TypingIndicatorMS int    `yaml:"typing_indicator_ms"`
		TypingDelayMS     int    `yaml:"typing_delay_ms"`
		PauseDefaultMS    int    `yaml:"pause_default_ms"`
		ChoicePrompt      string `yaml:"choice_prompt"`
		InputPlaceholder  string `yaml:"input_placeholder"`
	} `yaml:"playback"`
	Network struct {
		APIPort int `yaml:"api_port"`
	} `yaml:"network"`
	MQTT struct {
		Topic string `yaml:"topic"`
	} `yaml:"mqtt"`
}

// APIPort returns the configured API port, defaulting to 8080 if not set.
func (c *StoryConfig) APIPort() int {
	if c.Network.APIPort == 0 {
		return 8080
	}
	return c.Network.APIPort
}

// ChoicePrompt returns the prompt shown on choice scenes.
func (c *StoryConfig) ChoicePrompt() string {
	if c.Playback.ChoicePrompt == "" {
		return "Choose an action"
	}
	return c.Playback.ChoicePrompt
}

// InputPlaceholder returns the placeholder shown on input scenes.
func (c *StoryConfig) InputPlaceholder() string {
	if c.Playback.InputPlaceholder == "" {
		return "Type your answer..."
	}
	return c.Playback.InputPlaceholder
}

// MQTTTopic returns the event-mirror topic, derived from the story id
// when not set explicitly.
func (c *StoryConfig) MQTTTopic() string {
	if c.MQTT.Topic != "" {
		return c.MQTT.Topic
	}
	id := c.Story.ID
	if id == "" {
		id = "default"
	}
	return "chatstory/" + id + "/events"
}

// LoadStoryConfig reads and validates a story.yaml file.
func LoadStoryConfig(path string) (*StoryConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg StoryConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported story.yaml version: %d", cfg.Version)
	}

	return &cfg, nil
}
