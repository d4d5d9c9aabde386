// Package wincap provides the Windows implementation of the capture
// capability boundary: window enumeration, a host-memory texture device, a
// polling frame producer backed by PrintWindow with a screen-grab fallback,
// and process exit monitoring.
//
// Only process enumeration is portable; everything else returns
// capture.ErrUnsupported off Windows so the daemon fails fast with a clear
// message instead of spinning.
package wincap
