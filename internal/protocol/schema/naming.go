package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ClassCase canonicalizes a class or message key into an UpperCamelCase
// type name: "speed_report" -> "SpeedReport", "interMCU" -> "InterMcu".
func ClassCase(s string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	for _, w := range splitWords(s) {
		b.WriteString(caser.String(w))
	}
	return b.String()
}

// splitWords breaks on separators, lower-to-upper transitions, and the end
// of an acronym ("MCUProut" -> "MCU", "Prout").
func splitWords(s string) []string {
	runes := []rune(s)
	var words []string
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			words = append(words, string(runes[start:end]))
		}
		start = -1
	}
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := runes[i-1]
		switch {
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsUpper(prev) &&
			i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			flush(i)
			start = i
		}
	}
	flush(len(runes))
	return words
}

// IsIdentifier reports whether s is usable as an identifier in every
// emitted language.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		letter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		digit := c >= '0' && c <= '9'
		if !(letter || digit) || (i == 0 && digit) {
			return false
		}
	}
	return !reserved[s]
}

// runtimeTypes are type names the generated code defines next to the
// message types, keyed to the backend that defines them.
var runtimeTypes = map[string]string{
	"FrameError": "python",
	"Parser":     "python",
	"MsgBase":    "cpp",
	"MsgAny":     "c",
	"MsgParser":  "c",
}

// RuntimeType reports whether name is taken by a generated runtime type,
// and which backend defines it.
func RuntimeType(name string) (string, bool) {
	lang, ok := runtimeTypes[name]
	return lang, ok
}

// Keywords of C, C++ and Python, plus names the emitted code defines on
// every record.
var reserved = map[string]bool{
	// C / C++
	"auto": true, "break": true, "case": true, "char": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extern": true, "float": true, "for": true, "goto": true,
	"if": true, "inline": true, "int": true, "long": true, "register": true,
	"restrict": true, "return": true, "short": true, "signed": true,
	"sizeof": true, "static": true, "struct": true, "switch": true,
	"typedef": true, "union": true, "unsigned": true, "void": true,
	"volatile": true, "while": true, "bool": true, "class": true,
	"delete": true, "explicit": true, "friend": true, "mutable": true,
	"namespace": true, "new": true, "operator": true, "private": true,
	"protected": true, "public": true, "template": true, "this": true,
	"throw": true, "try": true, "catch": true, "typename": true,
	"using": true, "virtual": true, "nullptr": true, "true": true,
	"false": true, "constexpr": true, "noexcept": true,
	// Python
	"and": true, "as": true, "assert": true, "async": true, "await": true,
	"def": true, "del": true, "elif": true, "except": true, "finally": true,
	"from": true, "global": true, "import": true, "in": true, "is": true,
	"lambda": true, "nonlocal": true, "not": true, "or": true, "pass": true,
	"raise": true, "with": true, "yield": true, "None": true, "True": true,
	"False": true, "property": true, "classmethod": true,
	// record members generated by the backends
	"serialize": true, "deserialize": true, "ID": true, "NAME": true,
	"PAYLOAD_SIZE": true, "FRAME_SIZE": true, "FORMAT": true, "_values": true,
}
