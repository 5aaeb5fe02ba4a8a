package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	tests := map[string]string{
		"Bark Model":  "bark_model",
		"  ":          "unknown",
		"__x__":       "x",
		"dog-2024":    "dog-2024",
		"über/bellen": "ber_bellen",
	}
	for in, want := range tests {
		if got := SanitizeToken(in); got != want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeLabelComposes(t *testing.T) {
	decomposed := "cafe\u0301"
	composed := "caf\u00e9"
	if got := NormalizeLabel(" " + decomposed + " "); got != composed {
		t.Fatalf("NormalizeLabel = %q, want %q", got, composed)
	}
}

func TestDisplayLabel(t *testing.T) {
	if got := DisplayLabel("big_dog"); got != "Big Dog" {
		t.Fatalf("DisplayLabel = %q", got)
	}
}

func TestValidateModelName(t *testing.T) {
	valid := []string{"bark", "dog_v2", "Banging-1"}
	for _, name := range valid {
		if err := ValidateModelName(name); err != nil {
			t.Errorf("ValidateModelName(%q) unexpected error: %v", name, err)
		}
	}
	invalid := []string{"", " bark", "a/b", "..", ".hidden", "x:y"}
	for _, name := range invalid {
		if err := ValidateModelName(name); err == nil {
			t.Errorf("ValidateModelName(%q) expected error", name)
		}
	}
}
