package config

import (
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebounce_CoalescesBurst(t *testing.T) {
	in := make(chan fsnotify.Event, 8)
	out := debounce[fsnotify.Event](in, 50*time.Millisecond)

	in <- fsnotify.Event{Name: "config.yaml", Op: fsnotify.Create}
	in <- fsnotify.Event{Name: "config.yaml", Op: fsnotify.Write}
	in <- fsnotify.Event{Name: "config.yaml", Op: fsnotify.Write | fsnotify.Chmod}

	select {
	case e := <-out:
		assert.Equal(t, fsnotify.Write|fsnotify.Chmod, e.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced event not delivered")
	}

	select {
	case e := <-out:
		t.Fatalf("unexpected extra event %v", e)
	case <-time.After(150 * time.Millisecond):
	}

	close(in)
	_, ok := <-out
	assert.False(t, ok)
}

func TestDebounce_FlushOnClose(t *testing.T) {
	in := make(chan fsnotify.Event, 1)
	out := debounce[fsnotify.Event](in, time.Hour)

	in <- fsnotify.Event{Name: "config.yaml", Op: fsnotify.Write}
	close(in)

	e, ok := <-out
	require.True(t, ok)
	assert.Equal(t, "config.yaml", e.Name)

	_, ok = <-out
	assert.False(t, ok)
}
