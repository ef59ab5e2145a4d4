package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dinomed-server/exam"
	"dinomed-server/models"
	"dinomed-server/store"
)

// Health reports liveness.
// GET /health
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// StartSession draws a fresh exam session and returns the solution-stripped
// question list.
// POST /api/sim/start (also aliased under /api/simulation and /api/simulations)
func StartSession(engine *exam.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.StartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		session, err := engine.Start(c.Request.Context(), toStartConfig(req))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.StartResponse{
			SessionID:       session.ID,
			DurationMinutes: session.DurationMinutes,
			CreatedAt:       session.CreatedAt,
			Questions:       session.PublicQuestions(),
		})
	}
}

// GetSession re-serves the stored public view so a client reload does not
// resample.
// GET /api/sim/:session_id
func GetSession(engine *exam.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := engine.Get(c.Request.Context(), c.Param("session_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.StartResponse{
			SessionID:       session.ID,
			DurationMinutes: session.DurationMinutes,
			CreatedAt:       session.CreatedAt,
			Questions:       session.PublicQuestions(),
		})
	}
}

// SubmitSession grades a session, session id in the path.
// POST /api/sim/:session_id/submit (also aliased)
func SubmitSession(engine *exam.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		submit(c, engine, c.Param("session_id"))
	}
}

// SubmitSessionBody grades a session, session id in the body (legacy shape).
// POST /api/sim/submit
func SubmitSessionBody(engine *exam.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		submit(c, engine, "")
	}
}

func submit(c *gin.Context, engine *exam.Engine, sessionID string) {
	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if sessionID == "" {
		sessionID = req.SessionID
	}
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id required"})
		return
	}

	answers, err := decodeAnswers(req.Answers)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := engine.Submit(c.Request.Context(), sessionID, answers, c.GetString("user_email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// toStartConfig normalizes the two generations of start payloads into the one
// shape the engine understands.
func toStartConfig(req models.StartRequest) models.StartConfig {
	duration := req.DurationMinutes
	if duration == 0 {
		duration = req.DurationMin
	}
	order := req.SubjectOrder
	if len(order) == 0 {
		order = req.Order
	}
	return models.StartConfig{
		DurationMinutes: duration,
		Sections:        toSectionRequests(req.Sections),
		SubjectOrder:    order,
		Seed:            req.Seed,
	}
}

func toSectionRequests(payloads []models.SectionPayload) []models.SectionRequest {
	sections := make([]models.SectionRequest, 0, len(payloads))
	for _, p := range payloads {
		sec := models.SectionRequest{
			Subject:    p.Subject,
			MCQCount:   p.MCQCount,
			FillCount:  p.FillCount,
			Tags:       p.Tags,
			Difficulty: p.Difficulty,
		}
		if sec.Subject == "" {
			sec.Subject = p.Materia
		}
		if sec.MCQCount == 0 {
			sec.MCQCount = p.Scelta
		}
		if sec.FillCount == 0 {
			sec.FillCount = p.Completamento
		}
		if len(sec.Tags) == 0 {
			sec.Tags = p.Tag
		}
		if sec.Difficulty == "" {
			sec.Difficulty = p.Difficolta
		}
		sections = append(sections, sec)
	}
	return sections
}

// decodeAnswers accepts both answer shapes: the canonical id->value object
// and the legacy list of {id, tipo, answer_index|answer_text} entries.
func decodeAnswers(raw json.RawMessage) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, &exam.ValidationError{Msg: "answers required"}
	}

	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err == nil {
		answers := make(map[string]string, len(asMap))
		for id, v := range asMap {
			answers[id] = answerValue(v)
		}
		return answers, nil
	}

	var asList []models.AnswerEntry
	if err := json.Unmarshal(raw, &asList); err != nil {
		return nil, &exam.ValidationError{Msg: "answers must be an object or a list"}
	}
	answers := make(map[string]string, len(asList))
	for _, entry := range asList {
		if entry.ID == "" {
			continue
		}
		switch {
		case entry.Value != nil:
			answers[entry.ID] = *entry.Value
		case entry.AnswerIndex != nil:
			answers[entry.ID] = strconv.Itoa(*entry.AnswerIndex)
		case entry.AnswerText != nil:
			answers[entry.ID] = *entry.AnswerText
		default:
			answers[entry.ID] = ""
		}
	}
	return answers, nil
}

func answerValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// respondError maps engine errors to HTTP classes: validation and pool
// shortfalls are the caller's to fix, unknown sessions are 404, everything
// else is a server error.
func respondError(c *gin.Context, err error) {
	var validationErr *exam.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Msg})
		return
	}
	var poolErr *exam.InsufficientPoolError
	if errors.As(err, &poolErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     poolErr.Error(),
			"subject":   poolErr.Subject,
			"type":      poolErr.Type,
			"requested": poolErr.Requested,
			"available": poolErr.Available,
			"tags":      poolErr.Tags,
		})
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	log.Printf("Error handling request %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
