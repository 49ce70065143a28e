package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ghsearch/internal/domain"
)

// ViewState contains all the state needed for rendering
type ViewState struct {
	Width       int
	Height      int
	Title       string
	Input       string // rendered text input
	InputEmpty  bool   // raw input is empty; results are hidden
	Loading     bool
	Spinner     string // rendered spinner frame
	NumberUsers int    // -1 when unknown
	Table       string // rendered result table
	Alert       domain.AlertState
	ShowHelp    bool
	HelpContent string
	HelpBar     string // short key hints
}

// Renderer handles all view rendering
type Renderer struct {
	styles      *Styles
	popupRender *PopupRenderer
}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	styles := NewStyles()
	return &Renderer{
		styles:      styles,
		popupRender: NewPopupRenderer(styles),
	}
}

// Styles returns the renderer's styles
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Render produces the complete view
func (r *Renderer) Render(state ViewState) string {
	if state.ShowHelp {
		return r.popupRender.RenderPopup(state.HelpContent, state.Width, state.Height, r.styles.HelpBox)
	}

	content := &strings.Builder{}

	content.WriteString(r.styles.Title.Render(state.Title))
	content.WriteString("\n")
	content.WriteString(r.styles.Input.Render(state.Input))
	content.WriteString("\n")

	if state.Alert.Visible {
		content.WriteString(r.styles.Alert.Render(state.Alert.Text))
		content.WriteString("\n")
	}

	// Loading replaces the results; an empty input shows nothing
	switch {
	case state.Loading:
		content.WriteString("\n")
		content.WriteString(r.styles.Loading.Render(fmt.Sprintf("%s Searching...", state.Spinner)))
		content.WriteString("\n")
	case !state.InputEmpty:
		content.WriteString(r.styles.Status.Render("Users found: " + r.renderCount(state.NumberUsers)))
		content.WriteString("\n")
		content.WriteString(state.Table)
		content.WriteString("\n")
	}

	if state.HelpBar != "" {
		content.WriteString("\n")
		content.WriteString(r.styles.Help.Render(state.HelpBar))
	}

	mainStyle := r.styles.Main
	if state.Height > 0 {
		mainStyle = mainStyle.MaxHeight(state.Height)
	}
	return mainStyle.Render(content.String())
}

func (r *Renderer) renderCount(n int) string {
	if n < 0 {
		return r.styles.Dim.Render("-")
	}
	return r.styles.Count.Render(strconv.Itoa(n))
}

// RenderLine formats a settled result as one plain-text block, for line mode
func RenderLine(query string, numberUsers int, users []domain.UserSummary, alert domain.AlertState) string {
	var b strings.Builder
	if alert.Visible {
		fmt.Fprintf(&b, "error: %s\n", alert.Text)
	}
	if numberUsers < 0 {
		fmt.Fprintf(&b, "%q: users found: -\n", query)
	} else {
		fmt.Fprintf(&b, "%q: users found: %d\n", query, numberUsers)
	}
	width := 0
	for _, u := range users {
		width = max(width, lipgloss.Width(u.Login))
	}
	for _, u := range users {
		fmt.Fprintf(&b, "  %-*s  %d  %s\n", width, u.Login, u.ID, u.AvatarURL)
	}
	return b.String()
}
