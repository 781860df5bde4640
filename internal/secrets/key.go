package secrets

// Key holds derived key material. The backing memory is locked against
// swapping where the platform allows it and zeroed by Destroy.
type Key struct {
	b      []byte
	locked bool
}

func newKey(b []byte) *Key {
	return &Key{b: b, locked: lockMemory(b) == nil}
}

// Bytes returns the key material. The slice is only valid until Destroy.
func (k *Key) Bytes() []byte {
	return k.b
}

// Destroy zeroes the key and releases the memory lock. It is safe to call
// more than once.
func (k *Key) Destroy() {
	if k == nil || k.b == nil {
		return
	}
	clear(k.b)
	if k.locked {
		_ = unlockMemory(k.b)
		k.locked = false
	}
	k.b = nil
}
