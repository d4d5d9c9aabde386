//go:build !windows

package wincap

import (
	"log/slog"

	"nexuscap/internal/capture"
	"nexuscap/internal/locator"
)

// NewBackend reports that window capture is unavailable on this platform.
func NewBackend(_ *slog.Logger) (capture.Backend, error) {
	return nil, capture.ErrUnsupported
}

type stubEnumerator struct{}

// NewWindowEnumerator returns an enumerator that always fails off Windows.
func NewWindowEnumerator() locator.WindowEnumerator { return stubEnumerator{} }

func (stubEnumerator) Windows() ([]locator.WindowInfo, error) {
	return nil, capture.ErrUnsupported
}
