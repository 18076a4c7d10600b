package retriever

import "testing"

func TestParseSearchMode(t *testing.T) {
	cases := []struct {
		in   string
		want SearchMode
	}{
		{"", ModeHybrid},
		{"hybrid", ModeHybrid},
		{"2", ModeHybrid},
		{"vector", ModeVector},
		{"1", ModeVector},
	}
	for _, tc := range cases {
		got, err := ParseSearchMode(tc.in)
		if err != nil {
			t.Errorf("ParseSearchMode(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSearchMode(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseSearchModeRejectsUnknown(t *testing.T) {
	if _, err := ParseSearchMode("keyword"); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}
