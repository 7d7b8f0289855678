package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func startWatcher(t *testing.T, root string, log *eventLog) *Watcher {
	t.Helper()
	w := NewWatcher(root, log.add, WithDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestVersionOf(t *testing.T) {
	root := filepath.FromSlash("/bibles")
	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"/bibles/en_kjv.json", "en_kjv", true},
		{"/bibles/de_schlachter.json.xz", "de_schlachter", true},
		{"/bibles/elb.xml", "elb", true},
		{"/bibles/split/03.json", "split", true},
		{"/bibles/split/meta.json", "split", true},
		{"/bibles/index.json", "", false},
		{"/bibles/.hidden.json", "", false},
		{"/bibles/notes.txt", "", false},
		{"/bibles/.json", "", false},
		{"/bibles/a/b/c.json", "", false},
		{"/bibles", "", false},
		{"/other/en_kjv.json", "", false},
	}
	for _, tt := range tests {
		got, ok := VersionOf(root, filepath.FromSlash(tt.path))
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("VersionOf(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	log := &eventLog{}
	startWatcher(t, dir, log)

	path := filepath.Join(dir, "en_kjv.json")
	for i := 0; i < 5; i++ {
		if err := writeFile(path, "[]"); err != nil {
			t.Fatal(err)
		}
	}
	if err := writeFile(filepath.Join(dir, "notes.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)

	events := log.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected one debounced event, got %v", events)
	}
	if events[0].Version != "en_kjv" || events[0].Removed {
		t.Errorf("event = %+v", events[0])
	}
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.xml")
	if err := writeFile(path, "<XMLBIBLE/>"); err != nil {
		t.Fatal(err)
	}
	log := &eventLog{}
	startWatcher(t, dir, log)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)

	events := log.snapshot()
	if len(events) != 1 || events[0].Version != "old" || !events[0].Removed {
		t.Errorf("events = %v", events)
	}
}

func TestWatcher_SplitVersionDirectories(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing")
	if err := os.MkdirAll(existing, 0755); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(existing, "meta.json"), "{}"); err != nil {
		t.Fatal(err)
	}
	log := &eventLog{}
	startWatcher(t, dir, log)

	if err := writeFile(filepath.Join(existing, "01.json"), "{}"); err != nil {
		t.Fatal(err)
	}

	added := filepath.Join(dir, "added")
	if err := os.MkdirAll(added, 0755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher time to pick up the new directory.
	time.Sleep(100 * time.Millisecond)
	if err := writeFile(filepath.Join(added, "meta.json"), "{}"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)

	seen := map[string]bool{}
	for _, ev := range log.snapshot() {
		seen[ev.Version] = true
	}
	if !seen["existing"] || !seen["added"] {
		t.Errorf("expected events for existing and added, got %v", log.snapshot())
	}
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	w := NewWatcher(root, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	log := &eventLog{}
	w := NewWatcher(t.TempDir(), log.add)
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	w.Stop()
	if err := writeFile(filepath.Join(w.Root(), "late.json"), "[]"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if len(log.snapshot()) != 0 {
		t.Errorf("stopped watcher reported %v", log.snapshot())
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
