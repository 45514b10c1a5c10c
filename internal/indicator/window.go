package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Window keeps the most recent candles up to a fixed size, oldest first.
type Window struct {
	size    int
	candles []types.Candle
}

// NewWindow creates a window holding at most size candles. A size below 1 is treated as 1.
func NewWindow(size int) *Window {
	size = max(size, 1)

	return &Window{
		size:    size,
		candles: make([]types.Candle, 0, size),
	}
}

// Push appends candle and drops the oldest one once the window is full.
func (w *Window) Push(candle types.Candle) {
	if len(w.candles) == w.size {
		copy(w.candles, w.candles[1:])
		w.candles = w.candles[:w.size-1]
	}

	w.candles = append(w.candles, candle)
}

func (w *Window) Full() bool {
	return len(w.candles) == w.size
}

// Candles returns the window content, oldest first. The slice is only valid until the next Push.
func (w *Window) Candles() []types.Candle {
	return w.candles
}

// Last returns the n most recent candles, or all of them when fewer are held.
func (w *Window) Last(n int) []types.Candle {
	if n >= len(w.candles) {
		return w.candles
	}

	return w.candles[len(w.candles)-max(n, 0):]
}
