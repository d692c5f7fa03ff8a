// Package models defines the presentation protocol messages. The envelope is
// deliberately small: scope strings plus an opaque presentation definition in,
// a list of signed artifacts out.
package models

// PresentationQueryMessage is the inbound query body.
type PresentationQueryMessage struct {
	Scope []string `json:"scope"`
	// PresentationDefinition is passed through to generators untouched; this
	// service does not evaluate presentation-exchange semantics.
	PresentationDefinition map[string]interface{} `json:"presentationDefinition,omitempty"`
}

// PresentationResponseMessage carries the generated artifacts. Each entry is
// either a compact token (string) or a structured signed document (object),
// depending on the credential format of its group.
type PresentationResponseMessage struct {
	Presentation []interface{} `json:"presentation"`
}
