package ui

import (
	"ghsearch/internal/search"
)

// SnapshotMsg carries a controller snapshot into the program
type SnapshotMsg struct {
	Snapshot search.Snapshot
}

// helpPagerMsg contains the result of a help pager command
type helpPagerMsg struct {
	err error
}

// pauseRenderingMsg signals to pause Bubble Tea rendering
type pauseRenderingMsg struct{}

// resumeRenderingMsg signals to resume Bubble Tea rendering
type resumeRenderingMsg struct{}
