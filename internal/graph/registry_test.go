package graph

import (
	"testing"

	"github.com/chatstory/engine/internal/script"
)

func TestRegistryPublishAndLookup(t *testing.T) {
	r := NewRegistry()

	res := script.Compile("NPC: v1 line\n")
	snap, err := r.Publish("day1", Day{Number: 1}, res)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if snap.Version != 1 {
		t.Errorf("first publish version = %d, want 1", snap.Version)
	}

	latest, ok := r.Latest("day1")
	if !ok || latest != snap {
		t.Fatal("Latest should return the published snapshot")
	}
	if v, ok := r.Version("day1", 1); !ok || v != snap {
		t.Fatal("Version(1) should return the published snapshot")
	}
	if r.LatestVersion("day1") != 1 {
		t.Errorf("LatestVersion = %d, want 1", r.LatestVersion("day1"))
	}
}

func TestRegistryRepublishVersions(t *testing.T) {
	r := NewRegistry()

	first, err := r.Publish("day1", Day{Number: 1}, script.Compile("NPC: old\n"))
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	second, err := r.Publish("day1", Day{Number: 1}, script.Compile("NPC: new\n"))
	if err != nil {
		t.Fatalf("republish failed: %v", err)
	}

	if second.Version != 2 {
		t.Errorf("second publish version = %d, want 2", second.Version)
	}

	// Both versions stay addressable: a session that started on v1
	// finishes on v1.
	if v, ok := r.Version("day1", 1); !ok || v != first {
		t.Error("v1 lost after republish")
	}
	if latest, _ := r.Latest("day1"); latest != second {
		t.Error("latest should point at v2")
	}
}

func TestRegistryFailedPublishKeepsPrevious(t *testing.T) {
	r := NewRegistry()

	good, err := r.Publish("day1", Day{}, script.Compile("NPC: fine\n"))
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	// An empty draft fails the link; nothing changes.
	if _, err := r.Publish("day1", Day{}, &script.CompileResult{}); err == nil {
		t.Fatal("expected publish of empty draft to fail")
	}

	if latest, ok := r.Latest("day1"); !ok || latest != good {
		t.Error("failed publish must leave the previous snapshot as latest")
	}
	if r.LatestVersion("day1") != 1 {
		t.Errorf("LatestVersion = %d, want 1 after failed publish", r.LatestVersion("day1"))
	}
}

func TestRegistryDaysAreIndependent(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Publish("day1", Day{Number: 1}, script.Compile("NPC: one\n")); err != nil {
		t.Fatalf("publish day1: %v", err)
	}
	if _, err := r.Publish("day2", Day{Number: 2}, script.Compile("NPC: two\n")); err != nil {
		t.Fatalf("publish day2: %v", err)
	}

	if r.LatestVersion("day1") != 1 || r.LatestVersion("day2") != 1 {
		t.Error("day version counters should be independent")
	}
	if _, ok := r.Latest("day3"); ok {
		t.Error("unpublished day should have no latest")
	}
}
