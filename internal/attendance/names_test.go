package attendance

import "testing"

func TestFoldName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Asha Verma", "asha verma"},
		{"ASHA VERMA", "asha verma"},
		{"  Asha   Verma ", "asha verma"},
		{"Jean-Luc Picard", "jean luc picard"},
		{"jean_luc.picard", "jean luc picard"},
		{"Zoë Łód", "zoe łod"},
		{"Jiří Novák", "jiri novak"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := foldName(tt.input); got != tt.expected {
				t.Errorf("foldName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
