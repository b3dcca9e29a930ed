package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// ReplyCanceller is implemented by front ends that let the user abort a
// streamed reply.
type ReplyCanceller interface {
	SetReplyCancel(cancel context.CancelFunc)
	ClearReplyCancel()
}

// RunTUI starts the bubbletea program and runs loop concurrently with a
// TuiIO. It blocks until the loop finishes or the user quits; quitting
// cancels the context passed to loop.
func RunTUI(ctx context.Context, cfg TUIConfig, loop func(ctx context.Context, ui IO) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inputCh := make(chan inputResult, 1)
	model := NewModel(inputCh, cfg)

	// Create TuiIO first so the cancel hook is wired before the model is
	// copied into the program.
	tuiIO := &TuiIO{inputCh: inputCh}
	model.cancelReplyFn = tuiIO.CancelReply

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	tuiIO.program = p

	var (
		loopErr error
		wg      sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		loopErr = loop(ctx, tuiIO)
		p.Send(loopDoneMsg{err: loopErr})
	}()

	_, err := p.Run()
	cancel()
	// Unblock a ReadInput that is still waiting after the program exited.
	select {
	case inputCh <- inputResult{err: context.Canceled}:
	default:
	}
	wg.Wait()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return loopErr
}
