package content

import "fmt"

// Reason classifies a fetch failure.
type Reason string

// Fetch failure reasons surfaced to the orchestrator.
const (
	ReasonTimeout    Reason = "timeout"
	ReasonNoContent  Reason = "no_content"
	ReasonNavigation Reason = "navigation"
)

// FetchError is returned when a post's content could not be resolved.
type FetchError struct {
	URL    string
	Reason Reason
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
