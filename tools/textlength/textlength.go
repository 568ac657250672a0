// Package textlength provides the get_text_length tool.
package textlength

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/reagent"
)

const (
	Name        = "get_text_length"
	Description = "Returns the length of a text by characters"
)

// New returns the get_text_length tool.
func New() reagent.Tool {
	return reagent.NewTool(Name, Description, run)
}

func run(ctx context.Context, input string) (string, error) {
	reagent.LoggerFromContext(ctx).Debug("get_text_length called", "input", input)
	return strconv.Itoa(Length(input)), nil
}

// Length counts the characters of text after stripping single quotes and newlines, then
// double quotes, from both ends. Models often wrap the input in quotes.
func Length(text string) int {
	text = strings.Trim(text, "'\n")
	text = strings.Trim(text, `"`)
	return utf8.RuneCountInString(text)
}
