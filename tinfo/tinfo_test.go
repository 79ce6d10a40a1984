package tinfo

import (
	"testing"

	"github.com/sustcore-team/sustcore-sub000/defs"
)

func TestThreadinfoAddGetDel(t *testing.T) {
	var ti Threadinfo_t
	ti.Init()

	note := NewTnote()
	ti.Add(defs.Tid_t(1), note)

	if got := ti.Get(defs.Tid_t(1)); got != note {
		t.Fatalf("expected to get back the same note")
	}

	ti.Del(defs.Tid_t(1))
	if got := ti.Get(defs.Tid_t(1)); got != nil {
		t.Fatalf("expected note to be gone after Del")
	}
}

func TestDoomedReflectsIsdoomed(t *testing.T) {
	note := NewTnote()
	if note.Doomed() {
		t.Fatalf("fresh note should not be doomed")
	}
	note.Isdoomed = true
	if !note.Doomed() {
		t.Fatalf("expected Doomed() true after setting Isdoomed")
	}
}
