package repository

import "testing"

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"sunset":     "sunset",
		"100%":       `100\%`,
		"snake_case": `snake\_case`,
		`C:\photos`:  `C:\\photos`,
		`%_\`:        `\%\_\\`,
		"":           "",
	}
	for in, want := range cases {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}
