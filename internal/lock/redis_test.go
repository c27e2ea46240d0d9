package lock

import "testing"

func TestSerialKeyNamespacesSourceID(t *testing.T) {
	if got, want := serialKey("src-1"), "serial:src-1"; got != want {
		t.Errorf("serialKey = %q, want %q", got, want)
	}
}

func TestLockKeyNamespacesSender(t *testing.T) {
	if got, want := lockKey("0xSender"), "lock:sender:0xSender"; got != want {
		t.Errorf("lockKey = %q, want %q", got, want)
	}
}

func TestNormalizeSenderLowercases(t *testing.T) {
	if got, want := normalizeSender("0xABCDEF"), "0xabcdef"; got != want {
		t.Errorf("normalizeSender = %q, want %q", got, want)
	}
}
