package engine

import "testing"

func TestEventInvokesInOrder(t *testing.T) {
	var e EventWithArg[string]
	var got []string
	e.AddListener(func(s string) { got = append(got, "first:"+s) })
	e.AddListener(func(s string) { got = append(got, "second:"+s) })
	e.AddListener(nil)

	e.Invoke("x")

	if len(got) != 2 || got[0] != "first:x" || got[1] != "second:x" {
		t.Errorf("unexpected invocation order: %v", got)
	}
	if e.ListenerCount() != 2 {
		t.Errorf("Expected 2 listeners, got %d", e.ListenerCount())
	}
}

func TestEventRemoveListener(t *testing.T) {
	var e EventWithArg[int]
	calls := 0
	id := e.AddListener(func(n int) { calls += n })
	e.AddListener(func(n int) { calls += 10 * n })

	e.RemoveListener(id)
	e.Invoke(1)

	if calls != 10 {
		t.Errorf("Expected only the remaining listener to run, calls=%d", calls)
	}

	e.RemoveAllListeners()
	e.Invoke(1)
	if calls != 10 {
		t.Error("Listeners should be cleared")
	}
}
