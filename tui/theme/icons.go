package theme

import (
	"os"

	"github.com/traffisense/core/config"
)

// Nerd Font Icons (Private Constants)
const (
	nerdIconSuccess      = "󰄬" // md-check (U+F012C)
	nerdIconError        = "" // cod-error (U+EA87)
	nerdIconWarning      = "" // fa-warning (U+F071)
	nerdIconInfo         = "󰋼" // md-information (U+F02FC)
	nerdIconConnecting   = "󰦖" // md-progress_clock (U+F0996)
	nerdIconStreaming    = "" // fa-refresh (U+F021)
	nerdIconReconnecting = "󰔟" // md-timer_sand (U+F051F)
	nerdIconFinished     = "󰄳" // md-checkbox_marked_circle (U+F0133)
	nerdIconFailed       = "" // oct-x (U+F467)
	nerdIconViolation    = "" // fa-bullseye (U+F140)
	nerdIconSelect       = "󰁔" // md-arrow_right (U+F0054)
	nerdIconBullet       = "" // oct-dot_fill (U+F444)
	nerdIconArchive      = "󰀼" // md-archive (U+F003C)
	nerdIconSave         = "󰉉" // md-floppy (U+F0249)
)

// ASCII Fallback Icons (Private Constants)
const (
	asciiIconSuccess      = "✓"
	asciiIconError        = "✗"
	asciiIconWarning      = "⚠"
	asciiIconInfo         = "ℹ"
	asciiIconConnecting   = "…"
	asciiIconStreaming    = "◐"
	asciiIconReconnecting = "↻"
	asciiIconFinished     = "●"
	asciiIconFailed       = "✗"
	asciiIconViolation    = "!"
	asciiIconSelect       = "▶"
	asciiIconBullet       = "•"
	asciiIconArchive      = "[A]"
	asciiIconSave         = "[S]"
)

// Public Icon Variables
var (
	IconSuccess      string
	IconError        string
	IconWarning      string
	IconInfo         string
	IconConnecting   string
	IconStreaming    string
	IconReconnecting string
	IconFinished     string
	IconFailed       string
	IconViolation    string
	IconSelect       string
	IconBullet       string
	IconArchive      string
	IconSave         string
)

// init function determines which icon set to use
func init() {
	useASCII := false

	if os.Getenv("TRAFFISENSE_ICONS") == "ascii" {
		useASCII = true
	} else {
		cfg, err := config.LoadDefault()
		if err == nil && cfg.TUI != nil && cfg.TUI.Icons == "ascii" {
			useASCII = true
		}
	}

	if useASCII {
		IconSuccess = asciiIconSuccess
		IconError = asciiIconError
		IconWarning = asciiIconWarning
		IconInfo = asciiIconInfo
		IconConnecting = asciiIconConnecting
		IconStreaming = asciiIconStreaming
		IconReconnecting = asciiIconReconnecting
		IconFinished = asciiIconFinished
		IconFailed = asciiIconFailed
		IconViolation = asciiIconViolation
		IconSelect = asciiIconSelect
		IconBullet = asciiIconBullet
		IconArchive = asciiIconArchive
		IconSave = asciiIconSave
		return
	}

	IconSuccess = nerdIconSuccess
	IconError = nerdIconError
	IconWarning = nerdIconWarning
	IconInfo = nerdIconInfo
	IconConnecting = nerdIconConnecting
	IconStreaming = nerdIconStreaming
	IconReconnecting = nerdIconReconnecting
	IconFinished = nerdIconFinished
	IconFailed = nerdIconFailed
	IconViolation = nerdIconViolation
	IconSelect = nerdIconSelect
	IconBullet = nerdIconBullet
	IconArchive = nerdIconArchive
	IconSave = nerdIconSave
}
