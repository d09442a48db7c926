package memory

import "testing"

func TestLoadPositionNotFound(t *testing.T) {
	s := NewStore()
	_, _, _, found, err := s.LoadPosition("nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("found = true for a key never saved")
	}
}

func TestSaveAndLoadPosition(t *testing.T) {
	s := NewStore()
	if err := s.SavePosition("k1", "s004", map[string]any{"brave": true}, false); err != nil {
		t.Fatal(err)
	}

	sceneID, flags, completed, found, err := s.LoadPosition("k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || completed {
		t.Errorf("found=%v completed=%v", found, completed)
	}
	if sceneID != "s004" {
		t.Errorf("sceneID = %q, want s004", sceneID)
	}
	if flags["brave"] != true {
		t.Errorf("flags = %v", flags)
	}
}

func TestSavePositionMergesFlags(t *testing.T) {
	s := NewStore()
	if err := s.SavePosition("k1", "s001", map[string]any{"a": true, "mood": "calm"}, false); err != nil {
		t.Fatal(err)
	}
	if err := s.SavePosition("k1", "s002", map[string]any{"mood": "tense", "b": true}, false); err != nil {
		t.Fatal(err)
	}

	_, flags, _, _, err := s.LoadPosition("k1")
	if err != nil {
		t.Fatal(err)
	}
	if flags["a"] != true || flags["b"] != true {
		t.Errorf("earlier flags lost on merge: %v", flags)
	}
	if flags["mood"] != "tense" {
		t.Errorf("later value should win: %v", flags["mood"])
	}
}

func TestLoadPositionReturnsCopy(t *testing.T) {
	s := NewStore()
	if err := s.SavePosition("k1", "s001", map[string]any{"a": true}, false); err != nil {
		t.Fatal(err)
	}

	_, flags, _, _, _ := s.LoadPosition("k1")
	flags["a"] = false

	_, again, _, _, _ := s.LoadPosition("k1")
	if again["a"] != true {
		t.Error("mutating a loaded flag map leaked into the store")
	}
}

func TestRecordChoiceTaken(t *testing.T) {
	s := NewStore()
	if err := s.RecordChoiceTaken("k1", "s001", "s001.c0"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordChoiceTaken("k1", "s005", "s005.c1"); err != nil {
		t.Fatal(err)
	}

	events := s.ChoiceEvents()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ChoiceID != "s001.c0" || events[1].SceneID != "s005" {
		t.Errorf("events = %+v", events)
	}
	if events[0].Taken.IsZero() {
		t.Error("event timestamp not set")
	}
}
