// Package banker implements the safety-check half of deadlock avoidance:
// one banker's-algorithm oracle per resource class (a process runs one
// for its mutexes and one for its semaphores). The banker never blocks or
// wakes anything itself; it only answers "would granting this request
// leave the system unsafe?" so the syscall layer can refuse the request
// before the thread ever actually blocks.
package banker

// Banker tracks, for one resource class, how many units of each resource
// are available, how many each thread currently holds, and each thread's
// single pending request (a thread can only ever be waiting on one
// resource of a given class at a time, since it would have blocked on the
// first one).
type Banker struct {
	available  []int
	allocation [][]int
	need       []int // need[tid] == -1 means "no pending request"
}

const noNeed = -1

// New creates an empty banker tracking no threads and no resources.
func New() *Banker {
	return &Banker{}
}

// LockNum returns the number of resources (mutexes or semaphores)
// currently tracked.
func (b *Banker) LockNum() int { return len(b.available) }

func (b *Banker) threadNum() int { return len(b.allocation) }

// AddThread registers tid. If tid reuses a previously-used slot, its
// allocation row and pending need are cleared; otherwise the arrays grow
// up to and including tid, with zero-filled rows.
func (b *Banker) AddThread(tid int) {
	if tid < len(b.need) {
		for i := range b.allocation[tid] {
			b.allocation[tid][i] = 0
		}
		b.need[tid] = noNeed
		return
	}
	lockNum := b.LockNum()
	for len(b.need) <= tid {
		b.allocation = append(b.allocation, make([]int, lockNum))
		b.need = append(b.need, noNeed)
	}
}

// AddLock appends a brand-new resource with resCount units available,
// growing the thread arrays (if tid has not been seen yet) and every
// existing thread's allocation row to match the new resource count.
func (b *Banker) AddLock(tid, resCount int) {
	b.available = append(b.available, resCount)
	for tid >= b.threadNum() {
		b.need = append(b.need, noNeed)
		b.allocation = append(b.allocation, nil)
	}
	lockNum := b.LockNum()
	for i := range b.allocation {
		row := b.allocation[i]
		for len(row) < lockNum {
			row = append(row, 0)
		}
		b.allocation[i] = row
	}
}

// ModifyLock re-initializes a recycled lock id: available is reset to
// resCount, tid's allocation of it is cleared, and tid's pending need is
// cleared (it cannot legitimately still be waiting on a lock id that was
// just freed and reassigned).
func (b *Banker) ModifyLock(tid, lockID, resCount int) {
	b.available[lockID] = resCount
	b.allocation[tid][lockID] = 0
	b.need[tid] = noNeed
}

// Lock records a successful grant: available decreases, the thread's
// allocation increases, and its pending need is cleared.
func (b *Banker) Lock(tid, lockID int) {
	b.available[lockID]--
	b.allocation[tid][lockID]++
	b.need[tid] = noNeed
}

// Unlock records a release: available increases, the thread's allocation
// decreases. The caller must never call this with zero allocation.
func (b *Banker) Unlock(tid, lockID int) {
	b.available[lockID]++
	b.allocation[tid][lockID]--
}

// IsDeadlock is the safety oracle. It records tid's pending request
// against lockID, then runs the classic banker's safety-sequence search:
// starting from the set of threads holding any resource at all, it
// repeatedly finds threads whose pending need (if any) can be satisfied
// out of the simulated work pool, releases their allocation back into
// that pool, and removes them from the unfinished set. If a full pass
// makes no progress, the remaining unfinished threads can never complete
// without more resources than exist: the state is unsafe and the request
// must be refused.
//
// need[tid] is left set on return regardless of the verdict: on refusal
// the caller never actually performs the blocking operation, so a stale
// pending request would misrepresent thread tid's real intent on the
// next call. The caller is responsible for clearing it when it refuses.
func (b *Banker) IsDeadlock(tid, lockID int) bool {
	b.need[tid] = lockID

	notFinished := make(map[int]bool)
	for i, alloc := range b.allocation {
		for _, n := range alloc {
			if n != 0 {
				notFinished[i] = true
				break
			}
		}
	}

	work := append([]int(nil), b.available...)

	for len(notFinished) > 0 {
		progressed := false
		for tid := range notFinished {
			if need := b.need[tid]; need != noNeed {
				if work[need] == 0 {
					continue
				}
			}
			for lockID, n := range b.allocation[tid] {
				work[lockID] += n
			}
			delete(notFinished, tid)
			progressed = true
		}
		if !progressed {
			break
		}
	}

	return len(notFinished) > 0
}

// ClearNeed clears tid's pending request without touching allocation or
// availability. Callers use this after IsDeadlock refuses a request,
// since the thread never actually blocked (spec deviation from the
// un-amended original, which leaves a stale Some(lock_id) behind).
func (b *Banker) ClearNeed(tid int) {
	b.need[tid] = noNeed
}
