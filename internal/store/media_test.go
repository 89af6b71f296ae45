package store

import (
	"reflect"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Some.Movie.2024.1080p-WEB", "Some Movie 2024 1080p WEB"},
		{"Some_Movie_2024", "Some Movie 2024"},
		{"Some+Movie", "Some Movie"},
		{"already clean", "already clean"},
		{"  padded   name  ", "padded name"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeleteTierOrdering(t *testing.T) {
	tiers := deleteTiers("key1", "Some.Movie_2024", 2048, "video/mp4")

	if len(tiers) != 3 {
		t.Fatalf("got %d tiers, want 3", len(tiers))
	}

	// Exact fingerprint is consumed before any name fallback.
	if tiers[0].query != "file_key = ?" {
		t.Errorf("first tier query = %q, want the exact-key match", tiers[0].query)
	}
	if !reflect.DeepEqual(tiers[0].args, []interface{}{"key1"}) {
		t.Errorf("first tier args = %v", tiers[0].args)
	}

	// Normalized name before the raw one; both carry size and mime.
	byName := "file_name = ? AND file_size = ? AND mime_type = ?"
	if tiers[1].query != byName || tiers[2].query != byName {
		t.Errorf("name tier queries = %q, %q", tiers[1].query, tiers[2].query)
	}
	if !reflect.DeepEqual(tiers[1].args, []interface{}{"Some Movie 2024", int64(2048), "video/mp4"}) {
		t.Errorf("normalized tier args = %v", tiers[1].args)
	}
	if !reflect.DeepEqual(tiers[2].args, []interface{}{"Some.Movie_2024", int64(2048), "video/mp4"}) {
		t.Errorf("raw tier args = %v", tiers[2].args)
	}
}
