// Package win32 samples the foreground window through user32.
package win32
