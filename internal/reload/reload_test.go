package reload

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcher_Matches(t *testing.T) {
	w := &Watcher{
		files: map[string]struct{}{"/etc/app/app.toml": {}},
		dirs:  map[string]struct{}{"/srv/site": {}},
	}

	tests := []struct {
		name string
		evt  fsnotify.Event
		want bool
	}{
		{"empty name", fsnotify.Event{Name: "", Op: fsnotify.Write}, false},
		{"no op", fsnotify.Event{Name: "/etc/app/app.toml", Op: 0}, false},
		{"dotfile", fsnotify.Event{Name: "/srv/site/.swp", Op: fsnotify.Write}, false},
		{"watched file write", fsnotify.Event{Name: "/etc/app/app.toml", Op: fsnotify.Write}, true},
		{"watched file rename", fsnotify.Event{Name: "/etc/app/app.toml", Op: fsnotify.Rename}, true},
		{"sibling of watched file", fsnotify.Event{Name: "/etc/app/other.toml", Op: fsnotify.Write}, false},
		{"under watched dir", fsnotify.Event{Name: "/srv/site/css/main.css", Op: fsnotify.Create}, true},
		{"outside watched dir", fsnotify.Event{Name: "/srv/other/x", Op: fsnotify.Write}, false},
		{"dir prefix but not child", fsnotify.Event{Name: "/srv/sitemap.xml", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.matches(tt.evt); got != tt.want {
				t.Errorf("matches(%v) = %v, want %v", tt.evt, got, tt.want)
			}
		})
	}
}

func TestWatcher_TriggersOnFileChange(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "app.toml")
	if err := os.WriteFile(cfgPath, []byte("name = \"a\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	triggered := make(chan struct{}, 8)
	w, err := New(50*time.Millisecond, quietLogger(), func() {
		triggered <- struct{}{}
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.Add(cfgPath); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := os.WriteFile(cfgPath, []byte("name = \"b\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-triggered:
	case <-time.After(5 * time.Second):
		t.Fatal("no trigger after file change")
	}
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "content")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	triggered := make(chan struct{}, 8)
	w, err := New(150*time.Millisecond, quietLogger(), func() {
		triggered <- struct{}{}
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.Add(sub); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		name := filepath.Join(sub, "f.txt")
		if err := os.WriteFile(name, []byte{byte(i)}, 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-triggered:
	case <-time.After(5 * time.Second):
		t.Fatal("no trigger after burst")
	}

	select {
	case <-triggered:
		t.Error("burst produced more than one trigger")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_AddMissingPath(t *testing.T) {
	w, err := New(time.Millisecond, quietLogger(), func() {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("Add() error = nil, want stat error")
	}
}
