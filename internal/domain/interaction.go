package domain

// Mode is the interaction mode of a live session
type Mode string

const (
	ModeChat Mode = "chat"
	ModeQuiz Mode = "quiz"
)

// Message origins
const (
	OriginUser      = "user"
	OriginAssistant = "assistant"
)

// Message is one entry in an interaction's conversation. Pending marks the
// placeholder shown while a response is being generated.
type Message struct {
	Text    string `json:"text"`
	Origin  string `json:"origin"`
	Pending bool   `json:"pending,omitempty"`
}

// QuizState holds the active question, the student's last answer and the
// model's feedback on it. At most one question is active at a time.
type QuizState struct {
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
	Feedback string `json:"feedback,omitempty"`
}

// InteractionState is an observable snapshot of a live interaction session
type InteractionState struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	Mode         Mode      `json:"mode"`
	Ready        bool      `json:"ready"`
	Loading      bool      `json:"loading"`
	Conversation []Message `json:"conversation"`
	Quiz         QuizState `json:"quiz"`
}

// ChatMessageRequest is the request to send a chat message
type ChatMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// QuizAnswerRequest is the request to submit a quiz answer
type QuizAnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// OpenInteractionRequest is the request to open an interaction on a document
type OpenInteractionRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
}
