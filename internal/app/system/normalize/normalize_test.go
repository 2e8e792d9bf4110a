package normalize

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"volunteer@example.com", "volunteer@example.com"},
		{"VOLUNTEER@EXAMPLE.COM", "volunteer@example.com"},
		{"  Ana@Example.Org  ", "ana@example.org"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Email(tt.input); got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Ana Silva", "Ana Silva"},
		{"  Ana   Silva ", "Ana Silva"},
		{"", ""},
		{"UPPER case", "UPPER case"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Name(tt.input); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	if got := Status(" Completed "); got != "completed" {
		t.Errorf("Status = %q, want %q", got, "completed")
	}
}

func TestCategory_PreservesCase(t *testing.T) {
	if got := Category("  Environment "); got != "Environment" {
		t.Errorf("Category = %q, want %q", got, "Environment")
	}
}
