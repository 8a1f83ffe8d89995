package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// NormalizeLanguage turns user input into the "Name:code" form the backend
// expects. Accepted inputs are "Name:code" or a bare BCP 47 code ("de",
// "pt-BR"). The name is always regenerated from the code.
func NormalizeLanguage(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidLanguage)
	}
	code := input
	if idx := strings.LastIndex(input, ":"); idx >= 0 {
		code = strings.TrimSpace(input[idx+1:])
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, input)
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, input)
	}
	return name + ":" + tag.String(), nil
}
