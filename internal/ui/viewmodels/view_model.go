package viewmodels

import (
	"github.com/charmbracelet/bubbles/help"

	"ghsearch/internal/config"
	"ghsearch/internal/search"
	"ghsearch/internal/ui/views"
)

// ViewModel transforms controller snapshots and widget state into view-ready data
type ViewModel struct {
	config   *config.Config
	width    int
	height   int
	snapshot search.Snapshot
	rawInput string
}

// NewViewModel creates a new view model
func NewViewModel(cfg *config.Config) *ViewModel {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &ViewModel{config: cfg}
}

// SetDimensions sets the current terminal dimensions
func (vm *ViewModel) SetDimensions(width, height int) {
	vm.width = width
	vm.height = height
}

// Apply stores s unless it is older than the snapshot already held.
// It reports whether s was accepted.
func (vm *ViewModel) Apply(s search.Snapshot) bool {
	if s.Version < vm.snapshot.Version {
		return false
	}
	vm.snapshot = s
	return true
}

// Snapshot returns the snapshot currently rendered
func (vm *ViewModel) Snapshot() search.Snapshot {
	return vm.snapshot
}

// SetRawInput records the text box content
func (vm *ViewModel) SetRawInput(s string) {
	vm.rawInput = s
}

// Widgets carries the rendered bubbles components
type Widgets struct {
	Input   string
	Spinner string
	Table   string
	Help    help.Model
	Keys    help.KeyMap
}

// BuildViewState creates a ViewState for rendering
func (vm *ViewModel) BuildViewState(w Widgets, showHelp bool, helpContent string) views.ViewState {
	state := views.ViewState{
		Width:       vm.width,
		Height:      vm.height,
		Title:       vm.config.UI.Title,
		Input:       w.Input,
		InputEmpty:  vm.rawInput == "",
		Loading:     vm.snapshot.Loading,
		Spinner:     w.Spinner,
		NumberUsers: vm.snapshot.NumberUsers(),
		Table:       w.Table,
		Alert:       vm.snapshot.Alert,
		ShowHelp:    showHelp,
		HelpContent: helpContent,
	}
	if w.Keys != nil {
		state.HelpBar = w.Help.View(w.Keys)
	}
	return state
}
