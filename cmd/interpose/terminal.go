package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/key"
)

var errNoTerminal = errors.New("--terminal requires an interactive terminal")

// runTerminal dispatches terminal key events until Esc or ctx is done.
// Output is drawn on the screen while it is active.
func runTerminal(ctx context.Context, s *session) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errNoTerminal
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()

	view := &lineView{screen: screen, max: 200}
	prev := s.setPrinter(view.add)
	defer s.setPrinter(prev)

	view.add(fmt.Sprintf("allowed: %v (Esc quits)", s.rebaker.Allowed()))

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
		case <-stop:
		}
	}()

	for {
		switch ev := screen.PollEvent().(type) {
		case nil, *tcell.EventInterrupt:
			return ctx.Err()
		case *tcell.EventResize:
			screen.Sync()
			view.draw()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape {
				return nil
			}
			kev, ok := key.FromTcell(ev)
			if !ok {
				continue
			}
			s.dispatch(kev)
		}
	}
}

// lineView shows the most recent lines that fit on the screen.
type lineView struct {
	mu     sync.Mutex
	screen tcell.Screen
	lines  []string
	max    int
}

func (v *lineView) add(line string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.lines = append(v.lines, line)
	if len(v.lines) > v.max {
		v.lines = v.lines[len(v.lines)-v.max:]
	}
	v.drawLocked()
}

func (v *lineView) draw() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.drawLocked()
}

func (v *lineView) drawLocked() {
	v.screen.Clear()
	_, height := v.screen.Size()
	start := 0
	if len(v.lines) > height {
		start = len(v.lines) - height
	}
	for row, line := range v.lines[start:] {
		col := 0
		for _, r := range line {
			v.screen.SetContent(col, row, r, nil, tcell.StyleDefault)
			col++
		}
	}
	v.screen.Show()
}
