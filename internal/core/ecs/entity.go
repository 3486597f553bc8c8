package ecs

// PoolID is the stable identity of a pooled instance while it is live.
// Zero is never assigned.
type PoolID uint64

func (id PoolID) IsZero() bool { return id == 0 }

// IdentityAllocator hands out monotonically increasing pool identities and
// tracks which ones are held. Identity bookkeeping lives here, not on the
// pooled objects, so a released object carries no claim on its old id.
type IdentityAllocator struct {
	next  PoolID
	inUse map[PoolID]struct{}
}

func NewIdentityAllocator() *IdentityAllocator {
	return &IdentityAllocator{
		next:  1,
		inUse: make(map[PoolID]struct{}, 256),
	}
}

// Claim returns preferred when it is non-zero and free, otherwise the next
// fresh identity. Claiming a preferred id moves the counter past it so fresh
// ids stay monotonic.
func (a *IdentityAllocator) Claim(preferred PoolID) PoolID {
	if !preferred.IsZero() {
		if _, taken := a.inUse[preferred]; !taken {
			a.inUse[preferred] = struct{}{}
			if preferred >= a.next {
				a.next = preferred + 1
			}
			return preferred
		}
	}
	id := a.next
	a.next++
	a.inUse[id] = struct{}{}
	return id
}

// Free drops the claim on id. Freeing an unheld id is a no-op.
func (a *IdentityAllocator) Free(id PoolID) {
	delete(a.inUse, id)
}

func (a *IdentityAllocator) InUse(id PoolID) bool {
	_, ok := a.inUse[id]
	return ok
}

// Held returns the number of identities currently claimed.
func (a *IdentityAllocator) Held() int { return len(a.inUse) }

// Next returns the identity the next fresh claim will receive.
func (a *IdentityAllocator) Next() PoolID { return a.next }

// Restart clears every claim and sets the next fresh identity.
func (a *IdentityAllocator) Restart(next PoolID) {
	if next.IsZero() {
		next = 1
	}
	a.next = next
	clear(a.inUse)
}
