package script

import (
	"reflect"
	"testing"
)

func TestParseFlagSpec(t *testing.T) {
	tests := []struct {
		spec string
		want map[string]any
	}{
		{"", nil},
		{"   ", nil},
		{"brave", map[string]any{"brave": true}},
		{"flag:brave", map[string]any{"brave": true}},
		{"brave=true", map[string]any{"brave": true}},
		{"brave=false", map[string]any{"brave": false}},
		{"mood=angry", map[string]any{"mood": "angry"}},
		{"flag:met_sam, mood=tense", map[string]any{"met_sam": true, "mood": "tense"}},
		{"a=1,b,flag:c=false", map[string]any{"a": "1", "b": true, "c": false}},
		{",,", nil},
	}

	for _, tt := range tests {
		got := ParseFlagSpec(tt.spec)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseFlagSpec(%q) = %v, want %v", tt.spec, got, tt.want)
		}
	}
}
