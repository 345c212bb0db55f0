// Package render provides render-flush requesters for the scheduler.
//
// A flush is requested before handling events tagged with
// FlushBeforeHandling so that pending UI changes reach the screen before a
// long-running handler blocks the queue.
package render

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
)

// Flusher forces pending UI output to be drawn.
type Flusher interface {
	Flush()
}

// FlusherFunc adapts a function into a Flusher.
type FlusherFunc func()

// Flush implements Flusher.
func (f FlusherFunc) Flush() { f() }

// Nop is a Flusher that does nothing.
var Nop Flusher = FlusherFunc(func() {})

// DrawFunc paints the next frame onto the screen.
type DrawFunc func(screen tcell.Screen)

// ScreenFlusher flushes a tcell screen.
type ScreenFlusher struct {
	mu      sync.Mutex
	screen  tcell.Screen
	draw    DrawFunc
	flushes atomic.Uint64
}

// NewScreenFlusher creates a flusher for screen. draw may be nil.
func NewScreenFlusher(screen tcell.Screen, draw DrawFunc) *ScreenFlusher {
	return &ScreenFlusher{screen: screen, draw: draw}
}

// Flush draws a frame, if a DrawFunc is set, and shows it.
func (f *ScreenFlusher) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.draw != nil {
		f.draw(f.screen)
	}
	f.screen.Show()
	f.flushes.Add(1)
}

// Flushes returns how many times Flush ran.
func (f *ScreenFlusher) Flushes() uint64 {
	return f.flushes.Load()
}

// DrawText returns a DrawFunc that clears the screen and writes the lines
// produced by text, clipped to the screen size.
func DrawText(text func() string) DrawFunc {
	return func(screen tcell.Screen) {
		screen.Clear()
		width, height := screen.Size()
		for y, line := range strings.Split(text(), "\n") {
			if y >= height {
				break
			}
			x := 0
			for _, r := range line {
				if x >= width {
					break
				}
				screen.SetContent(x, y, r, nil, tcell.StyleDefault)
				x++
			}
		}
	}
}
