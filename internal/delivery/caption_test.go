package delivery

import (
	"testing"

	"autofilter-bot/internal/models"
)

func TestBuildCaption(t *testing.T) {
	rec := &models.MediaRecord{
		FileName: "Some Movie 2024",
		FileSize: 2 * 1024 * 1024,
		Caption:  "channel caption",
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "all placeholders",
			template: "{file_name}\n\nSize: {file_size}\n\n{file_caption}",
			want:     "Some Movie 2024\n\nSize: 2.00 MB\n\nchannel caption",
		},
		{
			name:     "unused placeholders are fine",
			template: "Just {file_name}",
			want:     "Just Some Movie 2024",
		},
		{
			name:     "unknown placeholder stays literal",
			template: "{file_name} {quality}",
			want:     "Some Movie 2024 {quality}",
		},
		{
			name:     "no placeholders at all",
			template: "static caption",
			want:     "static caption",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildCaption(tt.template, rec); got != tt.want {
				t.Errorf("BuildCaption() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{5 * 1024 * 1024 * 1024, "5.00 GB"},
	}
	for _, tt := range tests {
		if got := HumanSize(tt.n); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
