package crud

import "net/http"

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind uint8

const (
	KindRedirect OutcomeKind = iota
	KindRender
	KindJSON
)

// String returns a string representation of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case KindRedirect:
		return "redirect"
	case KindRender:
		return "render"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// View is the model handed to a template.
type View map[string]any

// Outcome is what every action produces; the host turns it into a response.
type Outcome struct {
	Kind     OutcomeKind
	URL      string
	Template string
	View     View
	Payload  any
	Status   int
}

// Redirect sends the client to url.
func Redirect(url string) Outcome {
	return Outcome{Kind: KindRedirect, URL: url, Status: http.StatusFound}
}

// Render renders template with view.
func Render(template string, view View) Outcome {
	return Outcome{Kind: KindRender, Template: template, View: view, Status: http.StatusOK}
}

// JSON serializes payload with status.
func JSON(payload any, status int) Outcome {
	return Outcome{Kind: KindJSON, Payload: payload, Status: status}
}
