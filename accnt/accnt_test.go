package accnt

import "testing"

func TestRunTimeSumsUserAndSys(t *testing.T) {
	a := &Accnt_t{}
	a.Utadd(100)
	a.Systadd(50)
	if got := a.RunTime(); got != 150 {
		t.Fatalf("got %d want 150", got)
	}
}

func TestAddMergesTwoRecords(t *testing.T) {
	a := &Accnt_t{Userns: 10, Sysns: 5}
	b := &Accnt_t{Userns: 3, Sysns: 2}
	a.Add(b)
	if a.Userns != 13 || a.Sysns != 7 {
		t.Fatalf("got userns=%d sysns=%d", a.Userns, a.Sysns)
	}
}
