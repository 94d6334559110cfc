package domain

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message es una entrada inmutable del transcript.
type Message struct {
	Role    string `json:"role" db:"role"`
	Content string `json:"content" db:"content"`
}

// Conversation agrupa el transcript ordenado bajo un id unico.
type Conversation struct {
	ID       string    `json:"id" db:"id"`
	Title    string    `json:"title" db:"title"`
	Messages []Message `json:"messages" db:"-"`
}

// ConversationSummary es la vista resumida que devuelve GET /convos.
type ConversationSummary struct {
	ConvoID    string `json:"convoId" db:"id"`
	ConvoTitle string `json:"convoTitle" db:"title"`
}
