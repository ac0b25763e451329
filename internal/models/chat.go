package models

// ChatRequest is the inbound body of the chat endpoint
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"` // opaque, only used to correlate log lines
}

// ChatResponse is returned on a successful completion
type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the uniform failure envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Persona is the fixed system-level text defining the assistant's role
type Persona struct {
	Name         string   `yaml:"name"`
	Instructions string   `yaml:"instructions"`
	Topics       []string `yaml:"topics"`
}
