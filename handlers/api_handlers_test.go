package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinomed-server/bank"
	"dinomed-server/exam"
	"dinomed-server/models"
	"dinomed-server/store"
)

type stubBank struct {
	questions []models.Question
}

func (s *stubBank) FetchAll(context.Context) ([]models.Question, error) {
	return s.questions, nil
}

func (s *stubBank) FetchByID(_ context.Context, id string) (models.Question, error) {
	for _, q := range s.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return models.Question{}, bank.ErrQuestionNotFound
}

func testQuestions() []models.Question {
	var questions []models.Question
	for _, subject := range []string{"Chimica", "Fisica", "Biologia"} {
		for i := 0; i < 8; i++ {
			questions = append(questions, models.Question{
				ID:           fmt.Sprintf("%s-mc-%d", subject, i),
				Subject:      subject,
				Type:         models.MultipleChoice,
				Prompt:       "prompt",
				Options:      []string{"a", "b", "c", "d"},
				CorrectIndex: 1,
				Explanation:  "perche si",
			})
			questions = append(questions, models.Question{
				ID:       fmt.Sprintf("%s-fi-%d", subject, i),
				Subject:  subject,
				Type:     models.FillIn,
				Prompt:   "prompt",
				Accepted: []string{"mole", "moli"},
			})
		}
	}
	return questions
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore(0, 0)
	engine := exam.NewEngine(&stubBank{questions: testQuestions()}, st)

	router := gin.New()
	for _, prefix := range []string{"/api/sim", "/api/simulation", "/api/simulations"} {
		grp := router.Group(prefix)
		grp.POST("/start", StartSession(engine))
		grp.POST("/submit", SubmitSessionBody(engine))
		grp.GET("/:session_id", GetSession(engine))
		grp.POST("/:session_id/submit", SubmitSession(engine))
	}
	bot := router.Group("/api/bot")
	bot.POST("/questions/pick", PickQuestions(engine))
	bot.GET("/user/profile", UserProfile(st))
	bot.GET("/users/:email/profile", UserProfile(st))
	return router, st
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func startSession(t *testing.T, router *gin.Engine, body any) models.StartResponse {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/sim/start", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.StartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestStartSessionCanonicalPayload(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := startSession(t, router, gin.H{
		"duration_minutes": 100,
		"sections": []gin.H{
			{"subject": "Chimica", "mcq_count": 3, "fill_count": 1},
			{"subject": "Fisica", "mcq_count": 2},
		},
		"seed": 42,
	})

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, 100, resp.DurationMinutes)
	assert.Len(t, resp.Questions, 6)
}

func TestStartSessionLegacyPayload(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := startSession(t, router, gin.H{
		"duration_min": 50,
		"sections": []gin.H{
			{"materia": "Chimica", "scelta": 2, "completamento": 1, "difficolta": ""},
			{"materia": "Biologia", "scelta": 2},
		},
		"order": []string{"Biologia", "Chimica"},
	})

	assert.Equal(t, 50, resp.DurationMinutes)
	require.Len(t, resp.Questions, 5)
	assert.Equal(t, "Biologia", resp.Questions[0].Subject)
}

func TestStartSessionDoesNotLeakSolutions(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/sim/start", gin.H{
		"sections": []gin.H{{"subject": "Chimica", "mcq_count": 2, "fill_count": 2}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.NotContains(t, body, "correct_index")
	assert.NotContains(t, body, "accepted")
	assert.NotContains(t, body, "explanation")
}

func TestStartSessionValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/sim/start", gin.H{"sections": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/sim/start", gin.H{
		"sections": []gin.H{{"subject": "Chimica", "mcq_count": -1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartSessionInsufficientPool(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/sim/start", gin.H{
		"sections": []gin.H{{"subject": "Chimica", "mcq_count": 99}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Chimica", resp["subject"])
	assert.Equal(t, float64(99), resp["requested"])
	assert.Equal(t, float64(8), resp["available"])
}

func TestGetSession(t *testing.T) {
	router, _ := newTestRouter(t)
	started := startSession(t, router, gin.H{
		"sections": []gin.H{{"subject": "Fisica", "mcq_count": 2}},
	})

	w := doJSON(t, router, http.MethodGet, "/api/sim/"+started.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.StartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, started.Questions, resp.Questions)
}

func TestGetSessionNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/sim/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitSessionMapAnswers(t *testing.T) {
	router, _ := newTestRouter(t)
	started := startSession(t, router, gin.H{
		"sections": []gin.H{{"subject": "Chimica", "mcq_count": 2, "fill_count": 1}},
	})

	answers := gin.H{}
	for _, q := range started.Questions {
		if q.Type == models.MultipleChoice {
			answers[q.ID] = "B"
		} else {
			answers[q.ID] = " Mole "
		}
	}

	w := doJSON(t, router, http.MethodPost, "/api/sim/"+started.SessionID+"/submit", gin.H{"answers": answers})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.SubmissionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 3, result.Correct)
	assert.Equal(t, 3.0, result.Score)
	assert.Equal(t, 100.0, result.Percent)
	assert.Len(t, result.Details, 3)
}

func TestSubmitSessionNumericMapValues(t *testing.T) {
	router, _ := newTestRouter(t)
	started := startSession(t, router, gin.H{
		"sections": []gin.H{{"subject": "Chimica", "mcq_count": 1}},
	})

	// JSON numbers for multiple-choice indexes must be accepted.
	w := doJSON(t, router, http.MethodPost, "/api/sim/"+started.SessionID+"/submit", gin.H{
		"answers": gin.H{started.Questions[0].ID: 1},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result models.SubmissionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Correct)
}

func TestSubmitSessionListAnswersBodyID(t *testing.T) {
	router, _ := newTestRouter(t)
	started := startSession(t, router, gin.H{
		"sections": []gin.H{{"subject": "Biologia", "mcq_count": 1, "fill_count": 1}},
	})

	var list []gin.H
	for _, q := range started.Questions {
		if q.Type == models.MultipleChoice {
			list = append(list, gin.H{"id": q.ID, "tipo": "scelta", "answer_index": 1})
		} else {
			list = append(list, gin.H{"id": q.ID, "tipo": "completamento", "answer_text": "moli"})
		}
	}

	w := doJSON(t, router, http.MethodPost, "/api/sim/submit", gin.H{
		"session_id": started.SessionID,
		"answers":    list,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.SubmissionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Correct)
}

func TestSubmitSessionIdempotent(t *testing.T) {
	router, _ := newTestRouter(t)
	started := startSession(t, router, gin.H{
		"sections": []gin.H{{"subject": "Chimica", "mcq_count": 2}},
	})

	w := doJSON(t, router, http.MethodPost, "/api/sim/"+started.SessionID+"/submit", gin.H{
		"answers": gin.H{started.Questions[0].ID: "B"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var first models.SubmissionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	// Resubmitting everything correct must not change the stored result.
	w = doJSON(t, router, http.MethodPost, "/api/sim/"+started.SessionID+"/submit", gin.H{
		"answers": gin.H{
			started.Questions[0].ID: "B",
			started.Questions[1].ID: "B",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var second models.SubmissionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))

	assert.Equal(t, first.Correct, second.Correct)
	assert.Equal(t, first.Score, second.Score)
}

func TestSubmitSessionMissingID(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/sim/submit", gin.H{
		"answers": gin.H{"q": "A"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitSessionUnknownID(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/sim/no-such/submit", gin.H{
		"answers": gin.H{"q": "A"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitSessionBadAnswersShape(t *testing.T) {
	router, _ := newTestRouter(t)
	started := startSession(t, router, gin.H{
		"sections": []gin.H{{"subject": "Chimica", "mcq_count": 1}},
	})

	w := doJSON(t, router, http.MethodPost, "/api/sim/"+started.SessionID+"/submit", gin.H{
		"answers": "not-a-map",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAliasPrefixes(t *testing.T) {
	router, _ := newTestRouter(t)
	for _, prefix := range []string{"/api/sim", "/api/simulation", "/api/simulations"} {
		w := doJSON(t, router, http.MethodPost, prefix+"/start", gin.H{
			"sections": []gin.H{{"subject": "Fisica", "mcq_count": 1}},
		})
		assert.Equal(t, http.StatusOK, w.Code, prefix)
	}
}

func TestDecodeAnswers(t *testing.T) {
	answers, err := decodeAnswers(json.RawMessage(`{"q1": "A", "q2": 2, "q3": null, "q4": 1.5}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"q1": "A", "q2": "2", "q3": "", "q4": "1.5"}, answers)

	answers, err = decodeAnswers(json.RawMessage(`[
		{"id": "q1", "answer_index": 3},
		{"id": "q2", "answer_text": "mole"},
		{"id": "q3", "value": "B"},
		{"id": ""}
	]`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"q1": "3", "q2": "mole", "q3": "B"}, answers)

	_, err = decodeAnswers(json.RawMessage(`"nope"`))
	require.Error(t, err)
	_, err = decodeAnswers(nil)
	require.Error(t, err)
}
