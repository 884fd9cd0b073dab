package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/srg/bleadv/internal/comm"
)

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
}

// NewTestHelper creates a test helper with a debug level logger
func NewTestHelper(t *testing.T) *TestHelper {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel) // follow the controller/stack exchange in test output
	return &TestHelper{
		T:      t,
		Logger: logger,
	}
}

// EventRecorder collects port events, safe for use from radio goroutines
type EventRecorder struct {
	mu     sync.Mutex
	events []comm.Event
}

// Handler returns the function to install with comm.Port.SetOnEvent
func (r *EventRecorder) Handler() comm.EventHandler {
	return func(evt comm.Event, _ []byte) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, evt)
	}
}

// Events returns a copy of the recorded events
func (r *EventRecorder) Events() []comm.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]comm.Event(nil), r.events...)
}

// Count returns how many times evt was recorded
func (r *EventRecorder) Count(evt comm.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == evt {
			n++
		}
	}
	return n
}

// LoadFixture reads a file relative to the module root
func LoadFixture(relPath string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	root := wd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(root)
		if parent == root {
			return "", fmt.Errorf("could not find module root (go.mod not found)")
		}
		root = parent
	}

	data, err := os.ReadFile(filepath.Join(root, relPath))
	if err != nil {
		return "", fmt.Errorf("failed to read fixture %s: %w", relPath, err)
	}
	return string(data), nil
}
