package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var zapNop = zap.NewNop()

// day0 is a Wednesday.
var day0 = time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC)

func at(day int, hour, minute int) time.Time {
	return day0.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// mockCommandRunner is a test double for CommandRunner
type mockCommandRunner struct {
	mu       sync.Mutex
	calls    [][]string
	outputs  map[string][]byte // keyed by last argument
	runErr   error
	outCalls int
}

func newMockCommandRunner() *mockCommandRunner {
	return &mockCommandRunner{outputs: make(map[string][]byte)}
}

func (m *mockCommandRunner) Run(name string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string{name}, args...))
	return m.runErr
}

func (m *mockCommandRunner) Output(name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outCalls++
	m.calls = append(m.calls, append([]string{name}, args...))
	out, ok := m.outputs[args[len(args)-1]]
	if !ok {
		return nil, errors.New("exit status 1")
	}
	return out, nil
}

// mockProcessLister is a test double for ProcessLister
type mockProcessLister struct {
	procs []ProcessInfo
	err   error
}

func (m *mockProcessLister) List(ctx context.Context) ([]ProcessInfo, error) {
	return m.procs, m.err
}
