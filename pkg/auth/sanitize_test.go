package auth

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain name",
			input: "John Doe",
			want:  "John Doe",
		},
		{
			name:  "trim spaces",
			input: "  John Doe  ",
			want:  "John Doe",
		},
		{
			name:  "html escape",
			input: "John <script>",
			want:  "John &lt;script&gt;",
		},
		{
			name:  "unicode name",
			input: "José García",
			want:  "José García",
		},
		{
			name:  "control characters stripped",
			input: "John\x00\x07 Doe",
			want:  "John Doe",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeName(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSanitizeName_ClampsLength(t *testing.T) {
	long := strings.Repeat("é", maxNameLength+50)

	got := SanitizeName(long)

	if utf8.RuneCountInString(got) > maxNameLength {
		t.Errorf("sanitized name has %d runes, want at most %d", utf8.RuneCountInString(got), maxNameLength)
	}
	if !utf8.ValidString(got) {
		t.Error("clamping should not split a multi-byte rune")
	}
}
