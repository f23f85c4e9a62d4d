package toolchain

import (
	"errors"
	"regexp"
	"strings"
)

// ErrIdentifierNotFound is returned when a name-derived language declares no usable name
var ErrIdentifierNotFound = errors.New("Unable to find a valid class name in the Java code.")

var (
	publicClassPattern = regexp.MustCompile(`\bpublic\s+(?:(?:final|abstract|static|strictfp)\s+)*class\s+([A-Za-z_$][\w$]*)`)
	classPattern       = regexp.MustCompile(`\bclass\s+([A-Za-z_$][\w$]*)`)
)

// JavaClassName finds the class the compiled artifact is named after.
// A public top-level class wins since javac requires the file to carry its name.
func JavaClassName(code string) (string, error) {
	stripped := stripJavaNoise(code)
	if m := publicClassPattern.FindStringSubmatch(stripped); m != nil {
		return m[1], nil
	}
	if m := classPattern.FindStringSubmatch(stripped); m != nil {
		return m[1], nil
	}
	return "", ErrIdentifierNotFound
}

// stripJavaNoise blanks comments and string/char literals so their contents can't match
func stripJavaNoise(code string) string {
	var b strings.Builder
	b.Grow(len(code))

	const (
		normal = iota
		lineComment
		blockComment
		stringLit
		charLit
		textBlock
	)
	state := normal
	for i := 0; i < len(code); i++ {
		c := code[i]
		next := byte(0)
		if i+1 < len(code) {
			next = code[i+1]
		}

		switch state {
		case normal:
			switch {
			case c == '/' && next == '/':
				state = lineComment
				i++
			case c == '/' && next == '*':
				state = blockComment
				i++
			case strings.HasPrefix(code[i:], `"""`):
				state = textBlock
				i += 2
			case c == '"':
				state = stringLit
			case c == '\'':
				state = charLit
			default:
				b.WriteByte(c)
				continue
			}
			b.WriteByte(' ')
		case lineComment:
			if c == '\n' {
				state = normal
				b.WriteByte('\n')
			}
		case blockComment:
			if c == '*' && next == '/' {
				state = normal
				i++
				b.WriteByte(' ')
			}
		case textBlock:
			if strings.HasPrefix(code[i:], `"""`) {
				state = normal
				i += 2
				b.WriteByte(' ')
			}
		case stringLit, charLit:
			quote := byte('"')
			if state == charLit {
				quote = '\''
			}
			switch {
			case c == '\\':
				i++
			case c == quote || c == '\n':
				state = normal
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}
