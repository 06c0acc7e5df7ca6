package eventlog

import (
	"fmt"
	"sync"
	"testing"
)

func TestAppendRecent_NewestFirst(t *testing.T) {
	l := New(10)
	for i := 0; i < 3; i++ {
		l.Append(Event{Type: fmt.Sprintf("e%d", i)})
	}
	got := l.Recent(0)
	if len(got) != 3 {
		t.Fatalf("Recent: got %d events, want 3", len(got))
	}
	if got[0].Type != "e2" || got[2].Type != "e0" {
		t.Errorf("order wrong: %v %v %v", got[0].Type, got[1].Type, got[2].Type)
	}
}

func TestAppend_DropsOldestAtCapacity(t *testing.T) {
	l := New(4)
	for i := 0; i < 7; i++ {
		l.Append(Event{Type: fmt.Sprintf("e%d", i)})
	}
	if l.Len() != 4 {
		t.Fatalf("Len: got %d, want 4", l.Len())
	}
	got := l.Recent(0)
	if got[0].Type != "e6" {
		t.Errorf("newest: got %s, want e6", got[0].Type)
	}
	if got[3].Type != "e3" {
		t.Errorf("oldest retained: got %s, want e3", got[3].Type)
	}
}

func TestRecent_Limit(t *testing.T) {
	l := New(16)
	for i := 0; i < 10; i++ {
		l.Append(Event{Type: fmt.Sprintf("e%d", i)})
	}
	got := l.Recent(2)
	if len(got) != 2 || got[0].Type != "e9" || got[1].Type != "e8" {
		t.Errorf("Recent(2): got %v", got)
	}
}

func TestAppend_ConcurrentSafe(t *testing.T) {
	l := New(64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Append(Event{Type: "spin"})
				l.Recent(5)
			}
		}()
	}
	wg.Wait()
	if l.Len() != 64 {
		t.Errorf("Len after saturation: got %d, want 64", l.Len())
	}
}
