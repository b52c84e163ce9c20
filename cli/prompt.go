package cli

import (
	"errors"
	"os"

	"github.com/manifoldco/promptui"
)

// Confirm asks a yes/no question. An empty answer picks defaultYes.
// Answering no is not an error.
func Confirm(label string, defaultYes bool) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
	}

	if defaultYes {
		prompt.Default = "y"
	}

	if _, err := prompt.Run(); errors.Is(err, promptui.ErrAbort) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return true, nil
}

// PromptStringEmptyOk asks for a line of text, which may be empty.
func PromptStringEmptyOk(label string) (string, error) {
	prompt := promptui.Prompt{
		Label:  label,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}

	return prompt.Run()
}
