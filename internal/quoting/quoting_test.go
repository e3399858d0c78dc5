package quoting

import "testing"

func TestIdent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		backtick bool
		want     string
	}{
		{"simple", "users", false, `"users"`},
		{"empty", "", false, `""`},
		{"embedded double quote", `us"ers`, false, `"us""ers"`},
		{"injection attempt", `users"."passwords`, false, `"users"".""passwords"`},
		{"backtick simple", "users", true, "`users`"},
		{"backtick embedded", "us`ers", true, "`us``ers`"},
		{"backtick keeps double quote", `us"ers`, true, "`us\"ers`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Ident(tt.input, tt.backtick); got != tt.want {
				t.Errorf("Ident(%q, %v) = %q, want %q", tt.input, tt.backtick, got, tt.want)
			}
		})
	}
}

func TestLiteral(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  string
	}{
		{"", "''"},
		{"hello", "'hello'"},
		{"it's", "'it''s'"},
		{"'; DROP TABLE users; --", "'''; DROP TABLE users; --'"},
		{"caf\u00e9", "'caf\u00e9'"},
	}
	for _, tt := range tests {
		if got := Literal(tt.input); got != tt.want {
			t.Errorf("Literal(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  string
		needs bool
	}{
		{"abc", "abc", false},
		{"50%", `50\%`, true},
		{"a_b", `a\_b`, true},
		{`c:\dir`, `c:\\dir`, true},
		{`%_\`, `\%\_\\`, true},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := EscapeLike(tt.input); got != tt.want {
			t.Errorf("EscapeLike(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if got := NeedsLikeEscape(tt.input); got != tt.needs {
			t.Errorf("NeedsLikeEscape(%q) = %v, want %v", tt.input, got, tt.needs)
		}
	}
}
