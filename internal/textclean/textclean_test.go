package textclean

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"trims", "  Acme Tent \n", "Acme Tent"},
		{"drops nul", "a\x00b", "ab"},
		{"keeps inner newline", "a\nb", "a\nb"},
		{"invalid utf8", "ok\xff", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.in)
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := Clean(got); again != got {
				t.Errorf("Clean not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestCompact(t *testing.T) {
	in := "- product: Tent\n\n  products also purchased: \n#1:   Stove\t\tGas\n"
	want := "- product: Tent\nproducts also purchased:\n#1: Stove Gas"

	got := Compact(in)
	if got != want {
		t.Errorf("Compact() = %q, want %q", got, want)
	}
	if again := Compact(got); again != got {
		t.Errorf("Compact not idempotent: %q -> %q", got, again)
	}
}
