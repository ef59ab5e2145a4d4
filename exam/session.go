package exam

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"dinomed-server/bank"
	"dinomed-server/models"
	"dinomed-server/store"
)

// Engine orchestrates the session lifecycle: start draws from the bank and
// persists the full record, get re-serves the stored view, submit grades once
// and caches the result. All external call shapes are normalized before they
// reach this type.
type Engine struct {
	bank  bank.Reader
	store store.Store
}

func NewEngine(b bank.Reader, s store.Store) *Engine {
	return &Engine{bank: b, store: s}
}

func validateConfig(sections []models.SectionRequest) error {
	if len(sections) == 0 {
		return validationf("no sections requested")
	}
	total := 0
	for _, sec := range sections {
		if sec.Subject == "" {
			return validationf("section without subject")
		}
		if sec.MCQCount < 0 || sec.FillCount < 0 {
			return validationf("negative question count for subject %s", sec.Subject)
		}
		total += sec.Total()
	}
	if total <= 0 {
		return validationf("no questions requested")
	}
	return nil
}

// draw fetches the bank and builds a question list. The bank is re-read on
// every call so authoring edits are visible immediately.
func (e *Engine) draw(ctx context.Context, sections []models.SectionRequest, order []string, seed *int64) ([]models.Question, error) {
	if err := validateConfig(sections); err != nil {
		return nil, err
	}
	questions, err := e.bank.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching question bank: %w", err)
	}
	s := rand.Int63()
	if seed != nil {
		s = *seed
	}
	return BuildQuestionList(questions, sections, order, s)
}

// Start creates a new session. The returned session still carries solutions;
// callers must project it through PublicQuestions before responding.
// An empty SubjectOrder means the sections are drawn in the order the caller
// listed them.
func (e *Engine) Start(ctx context.Context, cfg models.StartConfig) (*models.Session, error) {
	questions, err := e.draw(ctx, cfg.Sections, cfg.SubjectOrder, cfg.Seed)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		DurationMinutes: cfg.DurationMinutes,
		SubjectOrder:    cfg.SubjectOrder,
		Questions:       questions,
	}
	if err := e.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}
	return session, nil
}

// Get loads a stored session so the client can re-render the same exam after
// a reload. No resampling happens here.
func (e *Engine) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	return e.store.Get(ctx, sessionID)
}

// Submit grades the session exactly once. The finished flag is flipped with
// compare-and-swap semantics in the store: if another submit got there first,
// its cached result is returned and this payload is never scored.
func (e *Engine) Submit(ctx context.Context, sessionID string, answers map[string]string, email string) (*models.SubmissionResult, error) {
	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Finished && session.Result != nil {
		return session.Result, nil
	}

	result := Grade(session, answers)
	result.TimeSpentSec = int(time.Since(session.CreatedAt).Seconds())

	stored, won, err := e.store.Finish(ctx, sessionID, answers, result)
	if err != nil {
		return nil, fmt.Errorf("finishing session %s: %w", sessionID, err)
	}
	if !won {
		return stored, nil
	}

	if email != "" {
		run := models.Run{
			ID:         uuid.NewString(),
			Email:      email,
			SessionID:  sessionID,
			CreatedAt:  time.Now().UTC(),
			Correct:    result.Correct,
			Wrong:      result.Wrong,
			Blank:      result.Blank,
			ScoreTotal: result.Score,
		}
		if err := e.store.RecordRun(ctx, run); err != nil {
			log.Printf("Error recording run for %s: %v", email, err)
		}
	}
	return result, nil
}

// Pick draws a question list with full solutions for the trusted bot caller.
// Nothing is persisted.
func (e *Engine) Pick(ctx context.Context, sections []models.SectionRequest, order []string, seed *int64) ([]models.Question, error) {
	return e.draw(ctx, sections, order, seed)
}
