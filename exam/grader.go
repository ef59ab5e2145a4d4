package exam

import (
	"math"
	"strconv"
	"strings"

	"dinomed-server/models"
	"dinomed-server/utils"
)

const choiceLetters = "ABCDE"

// ChoiceIndex coerces a raw multiple-choice answer into an option index.
// Accepted forms: a letter A-E (any case) or a numeric index 0-4. Anything
// else returns ok=false and is graded incorrect.
func ChoiceIndex(raw string) (int, bool) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if len(v) == 1 {
		if i := strings.IndexByte(choiceLetters, v[0]); i >= 0 {
			return i, true
		}
	}
	if i, err := strconv.Atoi(v); err == nil && i >= 0 && i < len(choiceLetters) {
		return i, true
	}
	return 0, false
}

// ChoiceLetter is the inverse mapping, used for reporting.
func ChoiceLetter(index int) string {
	if index < 0 || index >= len(choiceLetters) {
		return ""
	}
	return string(choiceLetters[index])
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round1(x float64) float64 { return math.Round(x*10) / 10 }

// Grade scores a session's questions against the submitted answers map.
// Unknown answer ids are ignored; missing or empty values count as blank.
// Scoring: +1 per correct, -0.1 per wrong, 0 per blank.
func Grade(session *models.Session, answers map[string]string) *models.SubmissionResult {
	result := &models.SubmissionResult{
		SessionID: session.ID,
		Total:     len(session.Questions),
		Details:   make([]models.QuestionResult, 0, len(session.Questions)),
	}

	perSubject := make(map[string]*models.SubjectScore)
	var subjectOrder []string

	for _, q := range session.Questions {
		sub, ok := perSubject[q.Subject]
		if !ok {
			sub = &models.SubjectScore{Subject: q.Subject}
			perSubject[q.Subject] = sub
			subjectOrder = append(subjectOrder, q.Subject)
		}
		sub.Total++

		detail := gradeQuestion(q, answers[q.ID])
		switch detail.Outcome {
		case models.OutcomeCorrect:
			result.Correct++
			sub.Correct++
		case models.OutcomeIncorrect:
			result.Wrong++
			sub.Wrong++
		default:
			result.Blank++
			sub.Blank++
		}
		result.Details = append(result.Details, detail)
	}

	result.Score = round2(float64(result.Correct) - 0.1*float64(result.Wrong))
	if result.Total > 0 {
		result.Percent = round1(float64(result.Correct) / float64(result.Total) * 100)
	}

	for _, subject := range subjectOrder {
		sub := perSubject[subject]
		sub.Score = round2(float64(sub.Correct) - 0.1*float64(sub.Wrong))
		if sub.Total > 0 {
			// 0-30 scale familiar from Italian exam grading.
			sub.Vote = round2(sub.Score * 30 / float64(sub.Total))
		}
		result.VoteTotal = round2(result.VoteTotal + sub.Vote)
		result.PerSubject = append(result.PerSubject, *sub)
	}

	return result
}

func gradeQuestion(q models.Question, raw string) models.QuestionResult {
	detail := models.QuestionResult{
		ID:          q.ID,
		Subject:     q.Subject,
		Type:        q.Type,
		Explanation: q.Explanation,
		Tags:        q.Tags,
	}

	if q.Type == models.MultipleChoice {
		idx := q.CorrectIndex
		detail.CorrectIndex = &idx
		detail.CorrectAnswer = ChoiceLetter(idx)
	} else {
		detail.Accepted = q.Accepted
		detail.CorrectAnswer = q.Accepted[0]
	}

	if strings.TrimSpace(raw) == "" {
		detail.Outcome = models.OutcomeBlank
		return detail
	}

	switch q.Type {
	case models.MultipleChoice:
		if idx, ok := ChoiceIndex(raw); ok {
			detail.YourAnswer = ChoiceLetter(idx)
			if idx == q.CorrectIndex {
				detail.Outcome = models.OutcomeCorrect
			} else {
				detail.Outcome = models.OutcomeIncorrect
			}
		} else {
			detail.YourAnswer = strings.TrimSpace(raw)
			detail.Outcome = models.OutcomeIncorrect
		}
	default:
		yours := utils.NormalizeAnswer(raw)
		detail.YourAnswer = yours
		detail.Outcome = models.OutcomeIncorrect
		for _, accepted := range q.Accepted {
			if utils.NormalizeAnswer(accepted) == yours {
				detail.Outcome = models.OutcomeCorrect
				break
			}
		}
	}

	detail.OK = detail.Outcome == models.OutcomeCorrect
	return detail
}
