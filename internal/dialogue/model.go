package dialogue

import (
	"time"

	"github.com/google/uuid"

	"medical-triage-agent/internal/triage"
)

// State is the session lifecycle position. FINALIZED and ESCALATED are
// terminal.
type State string

const (
	StateCollecting State = "collecting"
	StateRanking    State = "ranking"
	StateFollowup   State = "followup"
	StateFinalized  State = "finalized"
	StateEscalated  State = "escalated"
)

func (s State) Terminal() bool {
	return s == StateFinalized || s == StateEscalated
}

// Session is the whole conversation state. It is owned by the external
// store and passed through the service, which itself keeps nothing
// between calls.
type Session struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Language string    `json:"language" db:"language"`
	State    State     `json:"state" db:"state"`

	Belief     triage.BeliefState     `json:"belief" db:"belief"`
	Candidates triage.CandidateList   `json:"candidates" db:"candidates"`
	Asked      map[string]bool        `json:"asked" db:"asked"`
	Pending    string                 `json:"pending_symptom" db:"pending_symptom"`
	Outcome    *triage.Recommendation `json:"outcome,omitempty" db:"outcome"`

	// Turns counts every processed utterance; CountedTurns is the
	// escalation clock. GraceUsed marks the one uncounted rephrase a
	// session gets for its first unrecognized input, keeping the total
	// utterance count bounded by MaxTurns + 1.
	Turns        int  `json:"turns" db:"turns"`
	CountedTurns int  `json:"counted_turns" db:"counted_turns"`
	GraceUsed    bool `json:"grace_used" db:"grace_used"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ReplyType mirrors the conversation API contract: every processed
// utterance yields a question, a recommendation or a conversational
// error.
type ReplyType string

const (
	ReplyQuestion       ReplyType = "question"
	ReplyRecommendation ReplyType = "recommendation"
	ReplyError          ReplyType = "error"
)

// Reply is the orchestrator's answer to one utterance.
type Reply struct {
	SessionID       uuid.UUID              `json:"session_id"`
	Type            ReplyType              `json:"type"`
	State           State                  `json:"state"`
	Turn            int                    `json:"turn"`
	Question        string                 `json:"question,omitempty"`
	QuestionSymptom string                 `json:"question_symptom,omitempty"`
	Recommendation  *triage.Recommendation `json:"recommendation,omitempty"`
	Message         string                 `json:"message,omitempty"`
}
