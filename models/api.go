package models

import (
	"encoding/json"
	"time"
)

// Wire shapes. Several historical clients call the same two operations with
// different field names; the request structs below carry both spellings and
// the handlers normalize them before the engine sees anything.

// SectionPayload is one section of a start request. Canonical keys are
// subject/mcq_count/fill_count/tags/difficulty; the Italian aliases come from
// the first frontend generation.
type SectionPayload struct {
	Subject       string   `json:"subject"`
	Materia       string   `json:"materia"` // legacy alias for subject
	MCQCount      int      `json:"mcq_count"`
	Scelta        int      `json:"scelta"` // legacy alias for mcq_count
	FillCount     int      `json:"fill_count"`
	Completamento int      `json:"completamento"` // legacy alias for fill_count
	Tags          []string `json:"tags"`
	Tag           []string `json:"tag"` // legacy alias for tags
	Difficulty    string   `json:"difficulty"`
	Difficolta    string   `json:"difficolta"` // legacy alias for difficulty
}

// StartRequest starts a new exam session.
type StartRequest struct {
	DurationMinutes int              `json:"duration_minutes"`
	DurationMin     int              `json:"duration_min"` // legacy alias
	Sections        []SectionPayload `json:"sections" binding:"required"`
	SubjectOrder    []string         `json:"subject_order"`
	Order           []string         `json:"order"` // legacy alias
	Seed            *int64           `json:"seed"`
}

// StartResponse returns the public view of a freshly drawn session.
type StartResponse struct {
	SessionID       string           `json:"session_id"`
	DurationMinutes int              `json:"duration_minutes"`
	CreatedAt       time.Time        `json:"created_at"`
	Questions       []PublicQuestion `json:"questions"`
}

// SubmitRequest delivers answers. Answers is either an id->value object or the
// legacy list form ([]AnswerEntry); it is kept raw here and decoded by the
// adapter. SessionID is only set on the body-form endpoint.
type SubmitRequest struct {
	SessionID string          `json:"session_id"`
	Answers   json.RawMessage `json:"answers" binding:"required"`
}

// AnswerEntry is the legacy list form of a single answer.
type AnswerEntry struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Tipo        string  `json:"tipo"` // legacy alias for type
	Value       *string `json:"value"`
	AnswerIndex *int    `json:"answer_index"` // legacy, multiple-choice
	AnswerText  *string `json:"answer_text"`  // legacy, fill-in
}

// PickRequest is the bot-facing draw: same sections as a start request, but
// the response carries full solutions.
type PickRequest struct {
	Sections     []SectionPayload `json:"sections" binding:"required"`
	SubjectOrder []string         `json:"subject_order"`
	Order        []string         `json:"order"` // legacy alias
	Seed         *int64           `json:"seed"`
}

// ProfileRole is a rung of the gamified role ladder.
type ProfileRole struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Desc    string `json:"desc"`
	Min     int    `json:"min"`
	NextMin *int   `json:"next_min"`
	ToNext  int    `json:"to_next"`
}

// ProfileResponse is the bot user profile roll-up.
type ProfileResponse struct {
	Email          string      `json:"email"`
	TotalRuns      int         `json:"total_runs"`
	AccuracyPct    float64     `json:"accuracy_pct"`
	BestScoreTotal *float64    `json:"best_score_total"`
	LastRun        *Run        `json:"last_run"`
	Role           ProfileRole `json:"role"`
}
