package banker

import "testing"

func TestLockUnlockRoundTrip(t *testing.T) {
	b := New()
	b.AddThread(0)
	b.AddLock(0, 1)

	if b.IsDeadlock(0, 0) {
		t.Fatalf("single thread, single available resource should never deadlock")
	}
	b.Lock(0, 0)
	if b.available[0] != 0 || b.allocation[0][0] != 1 {
		t.Fatalf("state after Lock = available %v allocation %v", b.available, b.allocation)
	}
	b.Unlock(0, 0)
	if b.available[0] != 1 || b.allocation[0][0] != 0 {
		t.Fatalf("state after Unlock = available %v allocation %v", b.available, b.allocation)
	}
}

func TestIsDeadlockRefusesUnsafeRequest(t *testing.T) {
	b := New()
	b.AddThread(0)
	b.AddThread(1)
	b.AddLock(0, 1) // lock 0: one unit
	b.AddLock(1, 1) // lock 1: one unit

	// Thread 0 holds lock 0, wants lock 1.
	b.Lock(0, 0)
	// Thread 1 holds lock 1, wants lock 0: classic circular wait.
	b.Lock(1, 1)
	b.need[1] = 0 // thread 1 is already blocked waiting on lock 0

	if !b.IsDeadlock(0, 1) {
		t.Fatalf("thread 0 requesting lock 1 while thread 1 holds it and wants lock 0 should be unsafe")
	}
	b.ClearNeed(0)

	b.need[0] = 1 // now thread 0 is the one blocked waiting on lock 1
	if !b.IsDeadlock(1, 0) {
		t.Fatalf("symmetric request from thread 1 should also be unsafe")
	}
}

func TestIsDeadlockAllowsSafeRequest(t *testing.T) {
	b := New()
	b.AddThread(0)
	b.AddThread(1)
	b.AddLock(0, 2) // lock 0: two units, enough for both threads eventually

	if b.IsDeadlock(0, 0) {
		t.Fatalf("plenty of available resource should be safe")
	}
	b.Lock(0, 0)
	if b.IsDeadlock(1, 0) {
		t.Fatalf("one remaining unit for thread 1 alone should still be safe")
	}
}

func TestAddThreadRecyclesSlot(t *testing.T) {
	b := New()
	b.AddThread(0)
	b.AddLock(0, 3)
	b.Lock(0, 0)
	b.Lock(0, 0)

	b.AddThread(0) // recycle tid 0
	if b.allocation[0][0] != 0 {
		t.Fatalf("recycled thread's allocation = %d, want 0", b.allocation[0][0])
	}
	if b.need[0] != noNeed {
		t.Fatalf("recycled thread's need = %d, want cleared", b.need[0])
	}
}

func TestModifyLockResetsRecycledLock(t *testing.T) {
	b := New()
	b.AddThread(0)
	b.AddLock(0, 1)
	b.Lock(0, 0)

	b.ModifyLock(0, 0, 5)
	if b.available[0] != 5 {
		t.Fatalf("available after ModifyLock = %d, want 5", b.available[0])
	}
	if b.allocation[0][0] != 0 {
		t.Fatalf("allocation after ModifyLock = %d, want 0", b.allocation[0][0])
	}
	if b.need[0] != noNeed {
		t.Fatalf("need after ModifyLock = %d, want cleared", b.need[0])
	}
}
