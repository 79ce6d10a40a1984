package notif

import (
	"testing"
	"time"

	"github.com/sustcore-team/sustcore-sub000/cap"
	"github.com/sustcore-team/sustcore-sub000/defs"
)

func fullPerms() cap.PermissionBits {
	return cap.AllPerm(cap.PayloadNotification)
}

func noPerms() cap.PermissionBits {
	return cap.NewPermissionBits(0, cap.PayloadNotification)
}

func TestSetCheckResetRoundTrip(t *testing.T) {
	n := New()
	perms := fullPerms()

	if v, err := n.Check(perms, 5); err != 0 || v {
		t.Fatalf("expected bit 5 initially clear, got %v err=%v", v, err)
	}
	if err := n.Set(perms, 5); err != 0 {
		t.Fatalf("Set failed: %v", err)
	}
	if v, err := n.Check(perms, 5); err != 0 || !v {
		t.Fatalf("expected bit 5 set, got %v err=%v", v, err)
	}
	if err := n.Reset(perms, 5); err != 0 {
		t.Fatalf("Reset failed: %v", err)
	}
	if v, _ := n.Check(perms, 5); v {
		t.Fatalf("expected bit 5 clear after reset")
	}
}

func TestOperationsGatedByPermission(t *testing.T) {
	n := New()
	if err := n.Set(noPerms(), 3); err != defs.EPERM {
		t.Fatalf("expected EPERM setting without permission, got %v", err)
	}
	if _, err := n.Check(noPerms(), 3); err != defs.EPERM {
		t.Fatalf("expected EPERM checking without permission, got %v", err)
	}
}

func TestBitOutOfRange(t *testing.T) {
	n := New()
	if err := n.Set(fullPerms(), 256); err != defs.EINVAL {
		t.Fatalf("expected EINVAL for out-of-range bit, got %v", err)
	}
}

func TestWaitWakesOnMaskedBit(t *testing.T) {
	n := New()
	perms := fullPerms()
	done := make(chan int, 1)

	go func() {
		bit, err := n.Wait(perms, []int{2, 9, 40})
		if err != 0 {
			done <- -1
			return
		}
		done <- bit
	}()

	time.Sleep(20 * time.Millisecond)
	if err := n.Set(perms, 9); err != 0 {
		t.Fatalf("Set failed: %v", err)
	}

	select {
	case bit := <-done:
		if bit != 9 {
			t.Fatalf("expected wait to wake on bit 9, got %d", bit)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait never woke up")
	}
}

func TestWaitRejectsUnpermittedMaskBit(t *testing.T) {
	n := New()
	pb := cap.NewPermissionBits(0, cap.PayloadNotification)
	if _, err := n.Wait(pb, []int{1}); err != defs.EPERM {
		t.Fatalf("expected EPERM, got %v", err)
	}
}
