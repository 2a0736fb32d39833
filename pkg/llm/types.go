package llm

// Roles used on the wire.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is a prior turn replayed into a new session. Attachments are not
// carried: history is text only.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// InlineData is an attachment sent inline with the current turn.
type InlineData struct {
	Data     string `json:"data"` // base64
	MimeType string `json:"mime_type"`
}
