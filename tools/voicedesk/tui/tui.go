package tui

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/AltairaLabs/VoiceDesk/runtime/events"
)

// Minimum terminal size for the interactive screen.
const (
	MinTerminalWidth  = 40
	MinTerminalHeight = 10
)

// Supported reports whether stdin and stdout are a terminal large enough
// for the screen, and why not otherwise.
func Supported() (bool, string) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, "stdin is not a terminal"
	}
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return false, "unable to detect terminal size (not a TTY)"
	}
	if width < MinTerminalWidth || height < MinTerminalHeight {
		return false, fmt.Sprintf("terminal too small (%dx%d, minimum %dx%d required)",
			width, height, MinTerminalWidth, MinTerminalHeight)
	}
	return true, ""
}

// Run shows the screen until the user quits or ctx is canceled. Bus events
// are forwarded to the model while it runs.
func Run(ctx context.Context, model *Model, bus *events.EventBus) error {
	p := tea.NewProgram(model)
	unsubscribe := NewEventAdapter(p).Subscribe(bus)
	defer unsubscribe()

	errCh := make(chan error, 1)
	go func() {
		if _, err := p.Run(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		p.Quit()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
