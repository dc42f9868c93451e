package dedup

import (
	"testing"
	"time"
)

func TestFingerprintCacheSeenMarksDuplicate(t *testing.T) {
	c := NewFingerprintCache(100, time.Hour)

	if c.Seen("fp-1") {
		t.Fatal("Seen() first call reported duplicate")
	}
	if !c.Seen("fp-1") {
		t.Fatal("Seen() second call did not report duplicate")
	}
	if c.Seen("fp-2") {
		t.Fatal("Seen() distinct fingerprint reported duplicate")
	}
}

func TestFingerprintCacheExpiresAfterWindow(t *testing.T) {
	c := NewFingerprintCache(100, 10*time.Millisecond)

	if c.Seen("fp-1") {
		t.Fatal("Seen() first call reported duplicate")
	}
	time.Sleep(20 * time.Millisecond)
	if c.Seen("fp-1") {
		t.Fatal("Seen() reported duplicate after window elapsed")
	}
}

func TestFingerprintCacheSweepRemovesExpired(t *testing.T) {
	c := NewFingerprintCache(100, 10*time.Millisecond)

	c.Seen("fp-1")
	c.Seen("fp-2")
	time.Sleep(20 * time.Millisecond)

	removed := c.Sweep()
	if removed != 2 {
		t.Errorf("Sweep() removed = %d, want 2", removed)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after sweep", c.Len())
	}
}

func TestFingerprintCacheEvictsOverCapacity(t *testing.T) {
	c := NewFingerprintCache(2, time.Hour)

	c.Seen("fp-1")
	c.Seen("fp-2")
	c.Seen("fp-3")

	if c.Len() > 2 {
		t.Errorf("Len() = %d, want at most 2 (capacity)", c.Len())
	}
}
