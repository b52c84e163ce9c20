package cli

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrDone is returned by Select when the user picks the done item.
var ErrDone = errors.New("done")

const doneItem = "[Done]"

// Select asks the user to pick one of choices. A "[Done]" item is listed
// first; picking it returns ErrDone. Typing filters choices by prefix.
func Select(label string, choices []string) (string, error) {
	items := append([]string{doneItem}, choices...)

	sel := &promptui.Select{
		Label:    label,
		Items:    items,
		Size:     min(len(items), 10), //nolint:mnd
		Searcher: prefixSearcher(items),
	}

	idx, value, err := sel.Run()
	if err != nil {
		return "", err
	}

	if idx == 0 {
		return "", ErrDone
	}

	return value, nil
}

// prefixSearcher matches items starting with the input, ignoring case. The
// done item never matches a search.
func prefixSearcher(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if index == 0 || input == "" {
			return false
		}

		return strings.HasPrefix(strings.ToLower(items[index]), strings.ToLower(input))
	}
}
