package domain

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventQuerySettled    EventType = "QuerySettled"
	EventSearchStarted   EventType = "SearchStarted"
	EventSearchCompleted EventType = "SearchCompleted"
	EventSearchFailed    EventType = "SearchFailed"
	EventSearchDiscarded EventType = "SearchDiscarded"
	EventAlertExpired    EventType = "AlertExpired"
	EventConfigLoaded    EventType = "ConfigLoaded"
	EventConfigSaved     EventType = "ConfigSaved"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// QuerySettledEvent is emitted when the debounced query changes
type QuerySettledEvent struct {
	Query string
}

func (e QuerySettledEvent) Type() EventType { return EventQuerySettled }

// SearchStartedEvent is emitted when a request is issued for a generation
type SearchStartedEvent struct {
	Generation uint64
	RequestID  string
	Query      string
}

func (e SearchStartedEvent) Type() EventType { return EventSearchStarted }

// SearchCompletedEvent is emitted when the current generation succeeds
type SearchCompletedEvent struct {
	Generation uint64
	RequestID  string
	Query      string
	Returned   int
	TotalCount int
}

func (e SearchCompletedEvent) Type() EventType { return EventSearchCompleted }

// SearchFailedEvent is emitted when the current generation fails
type SearchFailedEvent struct {
	Generation uint64
	RequestID  string
	Query      string
	Message    string
	Err        error
}

func (e SearchFailedEvent) Type() EventType { return EventSearchFailed }

// SearchDiscardedEvent is emitted when a stale response is dropped
type SearchDiscardedEvent struct {
	Generation uint64
	Latest     uint64
	RequestID  string
	Query      string
	Failed     bool
}

func (e SearchDiscardedEvent) Type() EventType { return EventSearchDiscarded }

// AlertExpiredEvent is emitted when an alert hides itself
type AlertExpiredEvent struct{}

func (e AlertExpiredEvent) Type() EventType { return EventAlertExpired }

// ConfigLoadedEvent is emitted when configuration is loaded
type ConfigLoadedEvent struct {
	Path     string
	Endpoint string
}

func (e ConfigLoadedEvent) Type() EventType { return EventConfigLoaded }

// ConfigSavedEvent is emitted when configuration is saved
type ConfigSavedEvent struct {
	Path string
}

func (e ConfigSavedEvent) Type() EventType { return EventConfigSaved }
