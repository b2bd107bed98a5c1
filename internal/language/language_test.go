package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", Default},
		{"pt", "pt"},
		{"PT", "pt"},
		{" por ", "pt"},
		{"Portuguese", "pt"},
		{"fre", "fr"},
		{"ger", "de"},
		{"baq", "eu"},
		{"pt-BR", "pt"},
		{"es-419", "es"},
		{"not a language", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "Portuguese"},
		{"pt", "Portuguese"},
		{"spa", "Spanish"},
		{"pt-PT", "Portuguese"},
		{"not a language", "NOT A LANGUAGE"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Fatalf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
