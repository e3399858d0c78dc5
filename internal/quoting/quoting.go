// Package quoting quotes identifiers and string literals for the diagnostic
// renderers and escapes LIKE patterns built by the string translators.
package quoting

import "strings"

// LikeEscape is the escape character used by EscapeLike.
const LikeEscape = '\\'

// Ident quotes an identifier. MySQL uses backticks, every other backend
// double quotes. An embedded quote character is doubled.
func Ident(name string, backtick bool) string {
	q := `"`
	if backtick {
		q = "`"
	}
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// Literal renders s as a single-quoted string literal.
func Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var likeReplacer = strings.NewReplacer(
	string(LikeEscape), string(LikeEscape)+string(LikeEscape),
	"%", string(LikeEscape)+"%",
	"_", string(LikeEscape)+"_",
)

// EscapeLike escapes the LIKE wildcards in s so the value matches literally
// when used with ESCAPE LikeEscape.
func EscapeLike(s string) string {
	return likeReplacer.Replace(s)
}

// NeedsLikeEscape reports whether s contains a wildcard or the escape
// character.
func NeedsLikeEscape(s string) bool {
	return strings.ContainsAny(s, `%_`+string(LikeEscape))
}
