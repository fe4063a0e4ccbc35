package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"

	"github.com/ablizer/ablizer/internal/analysis"
	"github.com/ablizer/ablizer/internal/store"
)

// withStore opens the database, executes the function, and handles cleanup.
func (o *rootOptions) withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(o.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

func getTest(ctx context.Context, s store.Store, name string) (*store.Test, error) {
	test, err := s.GetTest(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("test '%s' not found", name)
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

func (o *rootOptions) analyzer(s store.Store) *analysis.Analyzer {
	return &analysis.Analyzer{Store: s, Alpha: o.cfg.Alpha}
}

func isInteractive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// promptText asks for a free-form value on an interactive terminal.
func promptText(label, defaultValue string) (string, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: defaultValue,
	}

	value, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			return "", errors.New("cancelled")
		}
		return "", err
	}
	return value, nil
}

// confirm asks a yes/no question on an interactive terminal.
func confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	_, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrAbort {
			return false, nil
		}
		if err == promptui.ErrInterrupt {
			return false, errors.New("cancelled")
		}
		return false, err
	}
	return true, nil
}

func validateFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %v", format, allowed)
}
