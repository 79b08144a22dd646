package session

import "testing"

type fakeChannel struct {
	name string
	sent [][]byte
}

func (f *fakeChannel) Send(message []byte) error {
	f.sent = append(f.sent, message)
	return nil
}

func TestBindOverridesPriorBinding(t *testing.T) {
	r := NewRegistry()
	c1 := &fakeChannel{name: "c1"}
	c2 := &fakeChannel{name: "c2"}

	r.Bind("v1", c1)
	r.Bind("v1", c2)

	ch, ok := r.Lookup("v1")
	if !ok || ch != Channel(c2) {
		t.Fatalf("Lookup(v1) = %v, want c2", ch)
	}

	// c1 should have no bindings left.
	r.RemoveChannel(c1)
	ch, ok = r.Lookup("v1")
	if !ok || ch != Channel(c2) {
		t.Fatalf("Lookup(v1) after removing stale c1 = %v, want c2 unaffected", ch)
	}
}

func TestRemoveChannelClearsAllItsBindings(t *testing.T) {
	r := NewRegistry()
	c1 := &fakeChannel{name: "c1"}

	r.Bind("v1", c1)
	r.Bind("v2", c1)

	r.RemoveChannel(c1)

	if _, ok := r.Lookup("v1"); ok {
		t.Errorf("expected v1 unbound after RemoveChannel")
	}
	if _, ok := r.Lookup("v2"); ok {
		t.Errorf("expected v2 unbound after RemoveChannel")
	}
}

func TestLookupUnknownID(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup("nope"); ok {
		t.Errorf("expected ok=false for unknown id")
	}
}

func TestCountTracksBindAndRemove(t *testing.T) {
	r := NewRegistry()
	if r.Count() != 0 {
		t.Fatalf("Count on empty registry = %d, want 0", r.Count())
	}

	c1 := &fakeChannel{name: "c1"}
	r.Bind("v1", c1)
	r.Bind("v2", c1)
	if r.Count() != 2 {
		t.Fatalf("Count after two binds = %d, want 2", r.Count())
	}

	r.RemoveChannel(c1)
	if r.Count() != 0 {
		t.Fatalf("Count after RemoveChannel = %d, want 0", r.Count())
	}
}
