package models

import (
	"fmt"
	"time"
)

// QuestionType distinguishes the two supported question formats. The type is
// assigned once when the bank is ingested; nothing downstream re-derives it
// from the shape of the record.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	FillIn         QuestionType = "fill-in"
)

// Question is the full bank record, solutions included. It never leaves the
// server before submission; clients see the Public projection instead.
type Question struct {
	ID           string       `json:"id"`
	Subject      string       `json:"subject"`
	Type         QuestionType `json:"type"`
	Prompt       string       `json:"prompt"`
	Tags         []string     `json:"tags"`
	Difficulty   string       `json:"difficulty,omitempty"`
	Options      []string     `json:"options,omitempty"`       // multiple-choice only
	CorrectIndex int          `json:"correct_index,omitempty"` // multiple-choice only
	Accepted     []string     `json:"accepted,omitempty"`      // fill-in only
	Explanation  string       `json:"explanation,omitempty"`
}

// Validate checks that the solution fields are structurally sound for the
// declared type.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question has no id")
	}
	if q.Subject == "" {
		return fmt.Errorf("question %s: missing subject", q.ID)
	}
	if q.Prompt == "" {
		return fmt.Errorf("question %s: missing prompt", q.ID)
	}
	switch q.Type {
	case MultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("question %s: multiple-choice needs at least 2 options, got %d", q.ID, len(q.Options))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("question %s: correct index %d out of range for %d options", q.ID, q.CorrectIndex, len(q.Options))
		}
	case FillIn:
		if len(q.Accepted) == 0 {
			return fmt.Errorf("question %s: fill-in needs at least one accepted answer", q.ID)
		}
	default:
		return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
	}
	return nil
}

// PublicQuestion is the solution-stripped projection sent to clients before
// grading. Correct indexes, accepted answers and explanations are deliberately
// absent from the struct so they cannot leak through serialization.
type PublicQuestion struct {
	ID      string       `json:"id"`
	Subject string       `json:"subject"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"prompt"`
	Tags    []string     `json:"tags"`
	Options []string     `json:"options,omitempty"` // multiple-choice only
}

// Public returns the client-safe view of the question.
func (q Question) Public() PublicQuestion {
	pub := PublicQuestion{
		ID:      q.ID,
		Subject: q.Subject,
		Type:    q.Type,
		Prompt:  q.Prompt,
		Tags:    q.Tags,
	}
	if q.Type == MultipleChoice {
		pub.Options = q.Options
	}
	return pub
}

// SectionRequest asks for a number of questions of each type for one subject,
// optionally restricted by tags (OR semantics) and difficulty.
type SectionRequest struct {
	Subject    string
	MCQCount   int
	FillCount  int
	Tags       []string
	Difficulty string
}

// Total is the number of questions the section requests overall.
func (s SectionRequest) Total() int { return s.MCQCount + s.FillCount }

// StartConfig is the canonical, adapter-normalized input to the session
// lifecycle controller.
type StartConfig struct {
	DurationMinutes int
	Sections        []SectionRequest
	SubjectOrder    []string
	Seed            *int64 // reproducible draws when set
}

// Session is the full server-side record of one exam run.
type Session struct {
	ID              string            `json:"id"`
	CreatedAt       time.Time         `json:"created_at"`
	DurationMinutes int               `json:"duration_minutes"`
	SubjectOrder    []string          `json:"subject_order"`
	Questions       []Question        `json:"questions"` // with solutions; server-side only
	Answers         map[string]string `json:"answers,omitempty"`
	Finished        bool              `json:"finished"`
	Result          *SubmissionResult `json:"result,omitempty"`
}

// PublicQuestions projects the drawn list for the client.
func (s *Session) PublicQuestions() []PublicQuestion {
	out := make([]PublicQuestion, 0, len(s.Questions))
	for _, q := range s.Questions {
		out = append(out, q.Public())
	}
	return out
}

// Outcome of a single graded question.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeBlank     Outcome = "blank"
)

// QuestionResult is the per-question row of a submission result. This is the
// only place solution-bearing fields are emitted.
type QuestionResult struct {
	ID            string       `json:"id"`
	Subject       string       `json:"subject"`
	Type          QuestionType `json:"type"`
	Outcome       Outcome      `json:"outcome"`
	OK            bool         `json:"ok"`
	YourAnswer    string       `json:"your_answer"`
	CorrectAnswer string       `json:"correct_answer"`
	CorrectIndex  *int         `json:"correct_index,omitempty"` // multiple-choice
	Accepted      []string     `json:"accepted,omitempty"`      // fill-in
	Explanation   string       `json:"explanation"`
	Tags          []string     `json:"tags"`
}

// SubjectScore is the per-subject sub-score, including the 0-30 scaled vote.
type SubjectScore struct {
	Subject string  `json:"subject"`
	Total   int     `json:"total"`
	Correct int     `json:"correct"`
	Wrong   int     `json:"wrong"`
	Blank   int     `json:"blank"`
	Score   float64 `json:"score"`
	Vote    float64 `json:"vote"`
}

// SubmissionResult is the graded outcome of a session. It is computed once and
// cached; later submits return it unchanged.
type SubmissionResult struct {
	SessionID    string           `json:"session_id"`
	Total        int              `json:"total"`
	Correct      int              `json:"correct"`
	Wrong        int              `json:"wrong"`
	Blank        int              `json:"blank"`
	Score        float64          `json:"score"`
	Percent      float64          `json:"percent"`
	VoteTotal    float64          `json:"vote_total"`
	PerSubject   []SubjectScore   `json:"per_subject,omitempty"`
	Details      []QuestionResult `json:"details"`
	TimeSpentSec int              `json:"time_spent_sec"`
}

// Run is one finished session attributed to a user, kept for the bot profile.
type Run struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	SessionID  string    `json:"session_id"`
	CreatedAt  time.Time `json:"created_at"`
	Correct    int       `json:"correct"`
	Wrong      int       `json:"wrong"`
	Blank      int       `json:"blank"`
	ScoreTotal float64   `json:"score_total"`
}
