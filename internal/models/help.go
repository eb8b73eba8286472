package models

// ResourceType classifies a help resource link
type ResourceType string

const (
	ResourceVideo   ResourceType = "video"
	ResourceArticle ResourceType = "article"
	ResourceCode    ResourceType = "code"
)

// HelpResource is an external link suggested in help content
type HelpResource struct {
	Title string       `json:"title"`
	URL   string       `json:"url"`
	Type  ResourceType `json:"type,omitempty"`
}

// HelpContent is AI-generated guidance for a stuck user. Ephemeral:
// regenerated on demand, never persisted beyond the active session.
type HelpContent struct {
	Summary         string         `json:"summary"`
	KeyPoints       []string       `json:"keyPoints"`
	ActionableSteps []string       `json:"actionableSteps"`
	Resources       []HelpResource `json:"resources"`
	// MessageDraft is only populated for Networking tasks
	MessageDraft string `json:"messageDraft,omitempty"`
}
