package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

var setupTestEnvironments = map[string]bool{}

// SetupForTesting sets up telemetry in a testing environment, ensuring that it isn't
// set up more than once. A missing telemetry.json5 is not an error in tests.
func SetupForTesting(t testing.TB, serviceName string) func() {
	_, setupAlready := setupTestEnvironments[serviceName]
	if setupAlready {
		return func() {}
	}
	setupTestEnvironments[serviceName] = true

	InitSlog(true)
	err := SetupFromEnv(context.Background(), serviceName)
	if errors.Is(err, ErrNotConfigured) {
		return func() {}
	}
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		err := Shutdown(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
}

// Report is a single call recorded by MemoryAPI.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// MemoryAPI records every report in memory, it is used to make assertions
// on telemetry in tests.
type MemoryAPI struct {
	mutex   sync.Mutex
	Reports []Report
}

func (m *MemoryAPI) record(kind, id string, params []any) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Reports = append(m.Reports, Report{Kind: kind, ID: id, Params: params})
}

func (m *MemoryAPI) ReportBroken(id string, params ...any) {
	m.record("broken", id, params)
}

func (m *MemoryAPI) ReportWarning(id string, params ...any) {
	m.record("warning", id, params)
}

func (m *MemoryAPI) ReportInfo(message string, params ...any) {
	m.record("info", message, params)
}

func (m *MemoryAPI) ReportDebug(message string, params ...any) {
	m.record("debug", message, params)
}

func (m *MemoryAPI) ReportCount(id string, count int64) {
	m.record("count", id, []any{count})
}

// Find returns every recorded report of the given kind and id.
func (m *MemoryAPI) Find(kind, id string) []Report {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var out []Report
	for _, r := range m.Reports {
		if r.Kind == kind && r.ID == id {
			out = append(out, r)
		}
	}
	return out
}

func (r Report) String() string {
	return fmt.Sprintf("%s %s %v", r.Kind, r.ID, r.Params)
}
