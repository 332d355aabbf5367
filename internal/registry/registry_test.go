package registry

import (
	"errors"
	"testing"
)

func TestResolveCanonicalNames(t *testing.T) {
	for _, desc := range All() {
		resolved, err := Resolve(desc.Name)
		if err != nil {
			t.Fatalf("resolve %q: %v", desc.Name, err)
		}
		if resolved != desc {
			t.Fatalf("resolve %q: got %+v, want %+v", desc.Name, resolved, desc)
		}
	}
}

func TestResolveAliases(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Chứng thực Hộ tịch", "Chứng thực - Hộ tịch"},
		{"Ch?ng th?c H? t?ch", "Chứng thực - Hộ tịch"},
		{"Văn thư - Lưu trữ", "Văn thư"},
		{"V?n th?", "Văn thư"},
		{"Đất đai - Môi trường", "Đất đai"},
		{"??t ?ai", "Đất đai"},
		{"Kinh t? - H? t?ng", "Kinh tế - Hạ tầng"},
		{"  Văn thư  ", "Văn thư"},
	}
	for _, tc := range cases {
		desc, err := Resolve(tc.raw)
		if err != nil {
			t.Fatalf("resolve %q: %v", tc.raw, err)
		}
		if desc.Name != tc.want {
			t.Fatalf("resolve %q: got %q, want %q", tc.raw, desc.Name, tc.want)
		}
	}
}

func TestResolveUnknownService(t *testing.T) {
	for _, raw := range []string{"", "Hộ khẩu", "unknown"} {
		if _, err := Resolve(raw); !errors.Is(err, ErrInvalidService) {
			t.Fatalf("resolve %q: expected ErrInvalidService, got %v", raw, err)
		}
	}
}

func TestPrefixesAreUniqueAndOrdered(t *testing.T) {
	descriptors := All()
	if len(descriptors) != 4 {
		t.Fatalf("expected 4 services, got %d", len(descriptors))
	}
	for i, desc := range descriptors {
		if desc.Prefix != i+1 {
			t.Fatalf("service %q: prefix %d at position %d", desc.Name, desc.Prefix, i)
		}
	}
}
