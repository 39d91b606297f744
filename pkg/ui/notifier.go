package ui

import (
	"fmt"
	"io"
	"sync"
)

// Notifier receives user-facing progress messages from long-running operations
type Notifier interface {
	// Progress reports that item i of total is being processed
	Progress(i, total int, label string)
	// Info reports a free-form status line
	Info(format string, args ...interface{})
}

// ConsoleNotifier prints notifications as plain lines
type ConsoleNotifier struct {
	out io.Writer
}

// NewConsoleNotifier creates a notifier writing to out
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

func (n *ConsoleNotifier) Progress(i, total int, label string) {
	fmt.Fprintf(n.out, "%s %s...\n", Dim(fmt.Sprintf("[%d/%d]", i, total)), label)
}

func (n *ConsoleNotifier) Info(format string, args ...interface{}) {
	fmt.Fprintln(n.out, fmt.Sprintf(format, args...))
}

// NopNotifier discards all notifications
type NopNotifier struct{}

func (NopNotifier) Progress(i, total int, label string)     {}
func (NopNotifier) Info(format string, args ...interface{}) {}

// RecordingNotifier keeps every notification as a formatted line
type RecordingNotifier struct {
	mu    sync.Mutex
	Lines []string
}

func (r *RecordingNotifier) Progress(i, total int, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Lines = append(r.Lines, fmt.Sprintf("[%d/%d] %s...", i, total, label))
}

func (r *RecordingNotifier) Info(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Lines = append(r.Lines, fmt.Sprintf(format, args...))
}

// Snapshot returns a copy of the recorded lines
func (r *RecordingNotifier) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Lines))
	copy(out, r.Lines)
	return out
}
