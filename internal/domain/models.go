package domain

// UserSummary represents one account returned by the search API
type UserSummary struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// SearchResult is the normalized outcome of one successful search request
type SearchResult struct {
	Items      []UserSummary
	TotalCount int
}

// Empty reports whether the result carries no users
func (r SearchResult) Empty() bool {
	return len(r.Items) == 0
}

// AlertState represents the single transient notification shown to the user
type AlertState struct {
	Visible bool
	Text    string
}

// HiddenAlert is the initial and reset alert state
var HiddenAlert = AlertState{}
