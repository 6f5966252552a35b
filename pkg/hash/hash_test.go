package hash

import (
	"hash/crc32"
	"testing"
)

func TestString_MatchesCRC32(t *testing.T) {
	for _, s := range []string{"", "Hello", "Window", "a b c", "##menubar"} {
		for _, seed := range []uint32{0, 1, 0xDEADBEEF} {
			want := crc32.Update(seed, crc32.IEEETable, []byte(s))
			if got := String(s, seed); got != want {
				t.Errorf("String(%q, %08X) = %08X, want %08X", s, seed, got, want)
			}
		}
	}
}

func TestDecoratedPath_PlainEqualsString(t *testing.T) {
	for _, s := range []string{"Hello", "Checkbox", "a###b", "##Menu_00"} {
		for _, seed := range []uint32{0, 42, 0x12345678} {
			if got, want := DecoratedPath(s, seed), String(s, seed); got != want {
				t.Errorf("DecoratedPath(%q, %08X) = %08X, want %08X", s, seed, got, want)
			}
		}
	}
}

func TestDecoratedPath_SlashSkipped(t *testing.T) {
	if got, want := DecoratedPath("Hello/world", 0), DecoratedPath("Helloworld", 0); got != want {
		t.Errorf("got %08X, want %08X", got, want)
	}
}

func TestDecoratedPath_SlashChainsSeed(t *testing.T) {
	parent := String("Window", 0)
	if got, want := DecoratedPath("Window/Button", 0), String("Button", parent); got != want {
		t.Errorf("got %08X, want %08X", got, want)
	}
}

func TestDecoratedPath_EscapedSlash(t *testing.T) {
	if got, want := DecoratedPath(`Hello\/world`, 0), String("Hello/world", 0); got != want {
		t.Errorf("got %08X, want %08X", got, want)
	}
	if got, want := DecoratedPath(`a\\b`, 0), String(`a\b`, 0); got != want {
		t.Errorf("escaped backslash: got %08X, want %08X", got, want)
	}
}

func TestDecoratedPath_TripleHashResets(t *testing.T) {
	for _, seed := range []uint32{0, 7, 0xCAFEBABE} {
		if got, want := DecoratedPath("a###b", seed), DecoratedPath("b", seed); got != want {
			t.Errorf("seed %08X: got %08X, want %08X", seed, got, want)
		}
	}
	// Reset goes back to the seed of the segment, not of the whole path.
	if got, want := DecoratedPath("Window/Label###id", 0), DecoratedPath("Window/id", 0); got != want {
		t.Errorf("segment reset: got %08X, want %08X", got, want)
	}
}

func TestDecoratedPath_LeadingSlashIgnoresSeed(t *testing.T) {
	for _, seed := range []uint32{1, 99, 0xFFFFFFFF} {
		if got, want := DecoratedPath("/x", seed), DecoratedPath("x", 0); got != want {
			t.Errorf("seed %08X: got %08X, want %08X", seed, got, want)
		}
	}
	if got, want := DecoratedPath("//Window/Item", 5), DecoratedPath("Window/Item", 0); got != want {
		t.Errorf("double slash: got %08X, want %08X", got, want)
	}
}
