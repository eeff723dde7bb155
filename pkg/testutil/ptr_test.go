package testutil

import "testing"

func TestPtr(t *testing.T) {
	t.Run("string", func(t *testing.T) {
		p := Ptr("transcript")
		if p == nil || *p != "transcript" {
			t.Fatalf("expected pointer to %q, got %v", "transcript", p)
		}
	})

	t.Run("int64", func(t *testing.T) {
		p := Ptr(int64(42))
		if p == nil || *p != 42 {
			t.Fatalf("expected pointer to 42, got %v", p)
		}
	})

	t.Run("returns distinct pointers", func(t *testing.T) {
		a := Ptr(1)
		b := Ptr(1)
		if a == b {
			t.Fatal("expected distinct pointers for separate calls")
		}
	})
}

func TestBytes(t *testing.T) {
	b := Bytes(3200, 0xA1)
	if len(b) != 3200 {
		t.Fatalf("expected 3200 bytes, got %d", len(b))
	}
	for i, v := range b {
		if v != 0xA1 {
			t.Fatalf("byte %d = %#x, want 0xA1", i, v)
		}
	}

	if got := Bytes(0, 1); len(got) != 0 {
		t.Fatalf("expected empty slice, got %d bytes", len(got))
	}
}
