package limits

import "testing"

func TestTakenRefusesBelowZero(t *testing.T) {
	var s Sysatomic_t = 1
	if !s.Taken(1) {
		t.Fatalf("expected first Taken(1) to succeed")
	}
	if s.Taken(1) {
		t.Fatalf("expected second Taken(1) to fail once exhausted")
	}
	if int64(s) != 0 {
		t.Fatalf("failed Taken should not change the counter, got %d", s)
	}
}

func TestGiveTakeRoundTrip(t *testing.T) {
	var s Sysatomic_t
	s.Give()
	if !s.Take() {
		t.Fatalf("expected Take to succeed after Give")
	}
	if int64(s) != 0 {
		t.Fatalf("expected counter back at zero, got %d", s)
	}
}
