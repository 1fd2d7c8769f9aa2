package sanitize_test

import (
	"testing"

	"instadl/pkg/sanitize"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "clean title", title: "My Video", want: "My Video"},
		{name: "unsafe chars", title: `a/b\c:d*e?f"g<h>i|j`, want: "a_b_c_d_e_f_g_h_i_j"},
		{name: "empty", title: "", want: "untitled"},
		{name: "whitespace only", title: "   ", want: "untitled"},
		{name: "unicode kept", title: "видео №1", want: "видео №1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitize.Filename(tt.title); got != tt.want {
				t.Errorf("Filename(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestIsBaseName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "plain", in: "video.mp4", want: true},
		{name: "empty", in: "", want: false},
		{name: "dot", in: ".", want: false},
		{name: "dotdot", in: "..", want: false},
		{name: "traversal", in: "../etc/passwd", want: false},
		{name: "subdir", in: "a/b.mp4", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitize.IsBaseName(tt.in); got != tt.want {
				t.Errorf("IsBaseName(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
