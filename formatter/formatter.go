// Package formatter renders message templates with positional arguments.
//
// The accepted syntax is a subset of ICU MessageFormat:
//
//	{0}                       argument 0, numbers rendered for the locale
//	{0,number}                decimal
//	{0,number,integer}        decimal without fraction digits
//	{0,number,percent}        percentage
//	{0,select,a {..} other {..}}
//
// A single quote followed by a brace starts a quoted literal, two quotes
// render one. Arguments missing from the call are left in place verbatim.
package formatter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	ErrSyntax          = errors.New("message syntax error")
	ErrUnsupportedType = errors.New("unsupported argument type")
	ErrNotANumber      = errors.New("argument is not a number")
)

// SyntaxError points at the offending byte of a template.
type SyntaxError struct {
	Template string
	Offset   int
	Reason   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("formatter: %s at offset %d in %q", e.Reason, e.Offset, e.Template)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

// ICU formats templates using x/text printers for number rendering.
type ICU struct{}

// New returns the default formatter.
func New() *ICU {
	return &ICU{}
}

// FormatMessage renders template for locale. Unparseable locale tags fall
// back to the root locale.
func (f *ICU) FormatMessage(locale, template string, args []any) (string, error) {
	p := message.NewPrinter(language.Make(locale))

	var b strings.Builder
	if err := render(&b, p, template, args); err != nil {
		return "", err
	}
	return b.String(), nil
}

func render(b *strings.Builder, p *message.Printer, pattern string, args []any) error {
	for i := 0; i < len(pattern); {
		switch pattern[i] {
		case '\'':
			i = quoted(b, pattern, i)
		case '{':
			end, err := closingBrace(pattern, i)
			if err != nil {
				return err
			}
			if err = argument(b, p, pattern[i+1:end], args); err != nil {
				return err
			}
			i = end + 1
		case '}':
			return &SyntaxError{Template: pattern, Offset: i, Reason: "unmatched '}'"}
		default:
			b.WriteByte(pattern[i])
			i++
		}
	}
	return nil
}

// quoted writes the literal starting at the quote at i and returns the index after it.
func quoted(b *strings.Builder, pattern string, i int) int {
	if i+1 < len(pattern) && pattern[i+1] == '\'' {
		b.WriteByte('\'')
		return i + 2
	}
	if i+1 >= len(pattern) || (pattern[i+1] != '{' && pattern[i+1] != '}') {
		b.WriteByte('\'')
		return i + 1
	}

	j := i + 1
	for j < len(pattern) {
		if pattern[j] == '\'' {
			if j+1 < len(pattern) && pattern[j+1] == '\'' {
				b.WriteByte('\'')
				j += 2
				continue
			}
			return j + 1
		}
		b.WriteByte(pattern[j])
		j++
	}
	// an unterminated quote runs to the end of the template
	return j
}

func closingBrace(pattern string, open int) (int, error) {
	depth := 0
	for i := open; i < len(pattern); i++ {
		switch pattern[i] {
		case '\'':
			if i+1 < len(pattern) && pattern[i+1] == '\'' {
				i++
				continue
			}
			if i+1 < len(pattern) && (pattern[i+1] == '{' || pattern[i+1] == '}') {
				end := strings.IndexByte(pattern[i+1:], '\'')
				if end < 0 {
					return -1, &SyntaxError{Template: pattern, Offset: i, Reason: "unterminated quote"}
				}
				i += end + 1
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return -1, &SyntaxError{Template: pattern, Offset: open, Reason: "unmatched '{'"}
}

func argument(b *strings.Builder, p *message.Printer, body string, args []any) error {
	parts := strings.SplitN(body, ",", 3)

	index, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || index < 0 {
		return &SyntaxError{Template: "{" + body + "}", Offset: 1, Reason: "argument index must be a non negative integer"}
	}
	if index >= len(args) {
		b.WriteString("{" + body + "}")
		return nil
	}
	arg := args[index]

	var argType, style string
	if len(parts) > 1 {
		argType = strings.ToLower(strings.TrimSpace(parts[1]))
	}
	if len(parts) > 2 {
		style = strings.TrimSpace(parts[2])
	}

	switch argType {
	case "":
		b.WriteString(plain(p, arg))
		return nil
	case "number":
		s, numErr := formatNumber(p, arg, style)
		if numErr != nil {
			return numErr
		}
		b.WriteString(s)
		return nil
	case "select":
		return selectCase(b, p, arg, style, args)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedType, argType)
	}
}

func plain(p *message.Printer, arg any) string {
	switch v := arg.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	if v, ok := numeric(arg); ok {
		return p.Sprintf("%v", number.Decimal(v))
	}
	return fmt.Sprint(arg)
}

func formatNumber(p *message.Printer, arg any, style string) (string, error) {
	v, ok := numeric(arg)
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrNotANumber, arg)
	}

	switch strings.ToLower(style) {
	case "":
		return p.Sprintf("%v", number.Decimal(v)), nil
	case "integer":
		return p.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(0))), nil
	case "percent":
		return p.Sprintf("%v", number.Percent(v)), nil
	default:
		return "", fmt.Errorf("%w: number style %q", ErrUnsupportedType, style)
	}
}

// numeric reports whether arg can be rendered as a number, parsing strings.
func numeric(arg any) (any, bool) {
	switch v := arg.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	default:
		return nil, false
	}
}

func selectCase(b *strings.Builder, p *message.Printer, arg any, cases string, args []any) error {
	value := fmt.Sprint(arg)

	var (
		selected, other     string
		found, hasOtherCase bool
	)

	for rest := strings.TrimSpace(cases); rest != ""; rest = strings.TrimSpace(rest) {
		open := strings.IndexByte(rest, '{')
		if open <= 0 {
			return &SyntaxError{Template: cases, Offset: len(cases) - len(rest), Reason: "select case without key or message"}
		}

		key := strings.TrimSpace(rest[:open])
		end, err := closingBrace(rest, open)
		if err != nil {
			return err
		}
		msg := rest[open+1 : end]

		if key == value && !found {
			selected, found = msg, true
		}
		if key == "other" {
			other, hasOtherCase = msg, true
		}
		rest = rest[end+1:]
	}

	if !found {
		if !hasOtherCase {
			return &SyntaxError{Template: cases, Offset: 0, Reason: "select has no 'other' case"}
		}
		selected = other
	}

	return render(b, p, selected, args)
}
