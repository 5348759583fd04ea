package hotkeys

import (
	"sync"
	"testing"
)

func noop() error { return nil }

func TestRegistryRegister(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		want bool
	}{
		{name: "valid", def: Definition{ID: 1, Key: 'K', Action: noop}, want: true},
		{name: "zero id", def: Definition{ID: 0, Key: 'K', Action: noop}, want: false},
		{name: "negative id", def: Definition{ID: -3, Key: 'K', Action: noop}, want: false},
		{name: "nil action", def: Definition{ID: 2, Key: 'K'}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			if got := r.Register(tt.def); got != tt.want {
				t.Fatalf("Register() = %v, want %v", got, tt.want)
			}
			if r.IsRegistered(tt.def.ID) != tt.want {
				t.Fatalf("IsRegistered() = %v, want %v", !tt.want, tt.want)
			}
		})
	}
}

func TestRegistryDuplicateDoesNotOverwrite(t *testing.T) {
	r := NewRegistry()
	if !r.Register(Definition{ID: 7, Key: 'A', Name: "first", Action: noop}) {
		t.Fatal("first Register failed")
	}
	if r.Register(Definition{ID: 7, Key: 'B', Name: "second", Action: noop}) {
		t.Fatal("duplicate Register succeeded")
	}
	def, _ := r.Get(7)
	if def.Name != "first" || def.Key != 'A' {
		t.Fatalf("Get(7) = %+v, want the first definition", def)
	}
}

func TestRegistryUnregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register(Definition{ID: 1, Action: noop})
	r.Register(Definition{ID: 2, Action: noop})

	if r.Unregister(99) {
		t.Fatal("Unregister(unknown) = true")
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d after unknown unregister, want 2", r.Len())
	}
	if !r.Unregister(1) {
		t.Fatal("first Unregister(1) = false")
	}
	if r.Unregister(1) {
		t.Fatal("second Unregister(1) = true")
	}
	if r.Len() != 1 || !r.IsRegistered(2) {
		t.Fatalf("registry after unregister = %+v", r.Snapshot())
	}
}

func TestRegistryUpdateAndSetEnabled(t *testing.T) {
	r := NewRegistry()
	r.Register(Definition{ID: 1, Key: 'A', Enabled: true, Action: noop})

	if r.Update(Definition{ID: 2, Key: 'B', Action: noop}) {
		t.Fatal("Update(unknown) = true")
	}
	if !r.Update(Definition{ID: 1, Key: 'B', Modifiers: ModShift, Enabled: true, Action: noop}) {
		t.Fatal("Update(1) = false")
	}
	def, _ := r.Get(1)
	if def.Key != 'B' || def.Modifiers != ModShift {
		t.Fatalf("Get(1) after update = %+v", def)
	}

	if !r.SetEnabled(1, false) {
		t.Fatal("SetEnabled(1) = false")
	}
	if def, _ := r.Get(1); def.Enabled {
		t.Fatal("definition still enabled")
	}
	if r.SetEnabled(42, true) {
		t.Fatal("SetEnabled(unknown) = true")
	}
}

func TestRegistrySnapshotIsStable(t *testing.T) {
	r := NewRegistry()
	for _, id := range []int{3, 1, 2} {
		r.Register(Definition{ID: id, Action: noop})
	}
	snap := r.Snapshot()
	r.UnregisterAll()

	if len(snap) != 3 || snap[0].ID != 1 || snap[1].ID != 2 || snap[2].ID != 3 {
		t.Fatalf("snapshot = %+v, want ids 1,2,3", snap)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() after UnregisterAll = %d", r.Len())
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Go(func() {
			for i := range 100 {
				id := w*1000 + i + 1
				r.Register(Definition{ID: id, Enabled: true, Action: noop})
				for _, def := range r.Snapshot() {
					_ = def.Enabled
				}
				r.Unregister(id)
			}
		})
	}
	wg.Wait()
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistryCloseRejectsLaterWrites(t *testing.T) {
	r := NewRegistry()
	r.Register(Definition{ID: 1, Action: noop})
	r.Register(Definition{ID: 2, Action: noop})
	if n := r.Close(); n != 2 {
		t.Fatalf("Close() = %d, want 2", n)
	}
	if r.Register(Definition{ID: 3, Action: noop}) {
		t.Fatal("Register after Close = true")
	}
	if r.Update(Definition{ID: 1, Action: noop}) {
		t.Fatal("Update after Close = true")
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistryCloseRacingRegister(t *testing.T) {
	for range 50 {
		r := NewRegistry()
		var wg sync.WaitGroup
		start := make(chan struct{})
		for w := range 4 {
			wg.Go(func() {
				<-start
				for i := range 50 {
					r.Register(Definition{ID: w*100 + i + 1, Action: noop})
				}
			})
		}
		close(start)
		r.Close()
		wg.Wait()
		if r.Len() != 0 {
			t.Fatalf("Len() = %d after Close, want 0", r.Len())
		}
	}
}
