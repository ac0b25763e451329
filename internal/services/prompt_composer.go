package services

import (
	"errors"
	"strings"

	"companion/internal/models"
)

// ErrInvalidInput is returned when the user message is empty or whitespace-only
var ErrInvalidInput = errors.New("message is required")

// Section markers. A line in caller-supplied text that equals a marker is
// escaped so it cannot open a section of its own.
const (
	sectionMarkerPrefix = "### "
	ContextSectionTitle = "IMPORTANT CONTEXT ABOUT THE USER"
	MessageSectionTitle = "USER MESSAGE"
)

// DefaultPersona is used when no persona file is configured
var DefaultPersona = models.Persona{
	Name: "Purpose Companion",
	Instructions: `You are the Purpose Companion, a warm and thoughtful coach inside a 30-day purpose discovery program.
You help people explore their core values, set meaningful goals, reflect on their days, and shape a personal vision.
Ask open, reflective questions, offer practical next steps, and encourage without flattering.
Stay within personal development, purpose, values, goals, habits, reflection and wellbeing.
If asked about unrelated topics, gently steer the conversation back to the user's growth.
You are not a therapist; if someone describes a crisis, encourage them to reach out to a qualified professional or local emergency services.
Keep responses concise, personal and conversational.`,
	Topics: []string{"purpose", "values", "goals", "reflection", "vision"},
}

// PromptSection is one named, ordered block of the composed prompt
type PromptSection struct {
	Title string // empty for the untitled persona block
	Body  string
}

// PromptComposer merges persona, context summary and user message
type PromptComposer struct {
	persona models.Persona
}

// NewPromptComposer creates a composer with the given persona
func NewPromptComposer(persona models.Persona) *PromptComposer {
	return &PromptComposer{persona: persona}
}

// Persona returns the configured persona
func (p *PromptComposer) Persona() models.Persona {
	return p.persona
}

// ValidateMessage fails fast on an empty message
func ValidateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrInvalidInput
	}
	return nil
}

// Sections returns the ordered prompt sections: persona, optional context,
// then the user message
func (p *PromptComposer) Sections(summary models.ContextSummary, message string) ([]PromptSection, error) {
	if err := ValidateMessage(message); err != nil {
		return nil, err
	}

	sections := []PromptSection{
		{Body: p.personaBody()},
	}
	if summary.HasData && strings.TrimSpace(summary.Text) != "" {
		sections = append(sections, PromptSection{
			Title: ContextSectionTitle,
			Body:  summary.Text,
		})
	}
	sections = append(sections, PromptSection{
		Title: MessageSectionTitle,
		Body:  message,
	})

	return sections, nil
}

// personaBody is the persona instructions followed by its focus topics, if any
func (p *PromptComposer) personaBody() string {
	body := strings.TrimSpace(p.persona.Instructions)

	var topics []string
	for _, topic := range p.persona.Topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			topics = append(topics, topic)
		}
	}
	if len(topics) > 0 {
		body += "\n\nFocus areas: " + strings.Join(topics, ", ") + "."
	}
	return body
}

// Compose renders the sections into a single text block
func (p *PromptComposer) Compose(summary models.ContextSummary, message string) (string, error) {
	sections, err := p.Sections(summary, message)
	if err != nil {
		return "", err
	}
	return renderSections(sections), nil
}

func renderSections(sections []PromptSection) string {
	var sb strings.Builder
	for i, section := range sections {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if section.Title != "" {
			sb.WriteString(sectionMarkerPrefix)
			sb.WriteString(section.Title)
			sb.WriteString("\n")
		}
		sb.WriteString(escapeMarkers(section.Body))
	}
	return sb.String()
}

// escapeMarkers indents any line that would be read as a section header
func escapeMarkers(body string) string {
	if !strings.Contains(body, sectionMarkerPrefix) {
		return body
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, sectionMarkerPrefix) {
			lines[i] = " " + line
		}
	}
	return strings.Join(lines, "\n")
}
