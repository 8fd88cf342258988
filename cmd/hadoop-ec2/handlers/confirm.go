package handlers

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/imamik/hadoop-ec2/internal/provisioning"
)

// confirm asks the user to approve a destructive action. It can be
// replaced in tests.
var confirm = confirmPrompt

func confirmPrompt(ctx context.Context, yes bool, title, description string) (bool, error) {
	if yes {
		return true, nil
	}
	if !isInteractiveTTY() {
		return false, provisioning.Preconditionf("%s: no terminal to confirm on, re-run with --yes", title)
	}

	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithProgramOptions(tea.WithOutput(os.Stderr)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
