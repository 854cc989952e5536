package provider

import (
	"context"
	"errors"
	"testing"
)

type testProvider struct {
	name      string
	available bool
}

func (p *testProvider) Name() string { return p.name }

func (p *testProvider) IsAvailable(ctx context.Context) bool { return p.available }

func testFactory(available bool) Factory[*testProvider] {
	return func(cfg map[string]any) (*testProvider, error) {
		name, _ := cfg["name"].(string)
		return &testProvider{name: name, available: available}, nil
	}
}

func TestRegistryCreate(t *testing.T) {
	r := NewRegistry[*testProvider]()
	r.RegisterFactory("alpha", testFactory(true))

	p, err := r.Create("alpha", map[string]any{"name": "alpha"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Name() != "alpha" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestRegistryCreateUnknown(t *testing.T) {
	r := NewRegistry[*testProvider]()
	if _, err := r.Create("ghost", nil); err == nil {
		t.Error("Create with unregistered factory did not error")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry[*testProvider]()
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		r.RegisterFactory(name, testFactory(true))
	}
	got := r.List()
	want := []string{"alpha", "bravo", "charlie"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}
}

func TestPrioritySelector(t *testing.T) {
	providers := map[string]*testProvider{
		"first":  {name: "first", available: false},
		"second": {name: "second", available: true},
		"third":  {name: "third", available: true},
	}

	s := &PrioritySelector[*testProvider]{Priority: []string{"first", "second", "third"}}
	p, err := s.Select(context.Background(), providers)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if p.Name() != "second" {
		t.Errorf("selected %q, want first available in priority order", p.Name())
	}
}

func TestPrioritySelectorNoneAvailable(t *testing.T) {
	s := &PrioritySelector[*testProvider]{Priority: []string{"only"}}
	_, err := s.Select(context.Background(), map[string]*testProvider{
		"only": {name: "only", available: false},
	})
	if err == nil {
		t.Error("Select with no available providers did not error")
	}
}

func TestHealthCheckSelectorSortedOrder(t *testing.T) {
	providers := map[string]*testProvider{
		"zeta":  {name: "zeta", available: true},
		"alpha": {name: "alpha", available: true},
	}
	s := &HealthCheckSelector[*testProvider]{}
	p, err := s.Select(context.Background(), providers)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if p.Name() != "alpha" {
		t.Errorf("selected %q, want first in sorted order", p.Name())
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(NewRegistry[*testProvider](), &HealthCheckSelector[*testProvider]{})
	m.Register("alpha", testFactory(true))
	m.Register("bravo", testFactory(false))

	if err := m.Initialize("alpha", map[string]any{"name": "alpha"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := m.Initialize("bravo", map[string]any{"name": "bravo"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	p, err := m.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Name() != "alpha" {
		t.Errorf("Get() = %q, want the available provider", p.Name())
	}

	if _, err := m.GetByName("bravo"); err != nil {
		t.Errorf("GetByName(bravo): %v", err)
	}
	if _, err := m.GetByName("ghost"); err == nil {
		t.Error("GetByName(ghost) did not error")
	}

	if got := len(m.Available()); got != 2 {
		t.Errorf("Available() has %d names, want 2", got)
	}
}

func TestManagerDefault(t *testing.T) {
	m := NewManager(NewRegistry[*testProvider](), &HealthCheckSelector[*testProvider]{})
	m.Register("alpha", testFactory(false))
	if err := m.Initialize("alpha", map[string]any{"name": "alpha"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := m.SetDefault("ghost"); err == nil {
		t.Error("SetDefault(ghost) did not error")
	}
	if err := m.SetDefault("alpha"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}

	// The default is returned even when unavailable; availability is the
	// selector's concern.
	p, err := m.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Name() != "alpha" {
		t.Errorf("Get() = %q, want default", p.Name())
	}
}

func TestManagerInitializeFactoryError(t *testing.T) {
	m := NewManager(NewRegistry[*testProvider](), &HealthCheckSelector[*testProvider]{})
	m.Register("broken", func(cfg map[string]any) (*testProvider, error) {
		return nil, errors.New("bad config")
	})
	if err := m.Initialize("broken", nil); err == nil {
		t.Error("Initialize with failing factory did not error")
	}
}
