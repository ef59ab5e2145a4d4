package handlers

import (
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dinomed-server/exam"
	"dinomed-server/models"
	"dinomed-server/store"
)

// PickQuestions draws a question list with full solutions for the Telegram
// bot. The bot runs its own quiz loop and grades locally, so unlike the
// session endpoints nothing is persisted here.
// POST /api/bot/questions/pick
func PickQuestions(engine *exam.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PickRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		order := req.SubjectOrder
		if len(order) == 0 {
			order = req.Order
		}
		questions, err := engine.Pick(c.Request.Context(), toSectionRequests(req.Sections), order, req.Seed)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": questions})
	}
}

// roleRung is one rung of the gamified ladder the bot shows users. Thresholds
// count completed runs.
type roleRung struct {
	key  string
	name string
	desc string
	min  int
}

var roleLadder = []roleRung{
	{"tirocinante", "Tirocinante", "Hai appena messo piede in corsia.", 0},
	{"studente_clinico", "Studente clinico", "Le basi ci sono, ora si fa sul serio.", 10},
	{"specializzando", "Specializzando", "Macini simulazioni come un treno.", 50},
	{"medico_in_corsia", "Medico in corsia", "Il test non ti fa più paura.", 100},
	{"medico_esperto", "Medico esperto", "Pochi errori, tanta esperienza.", 200},
	{"primario", "Primario", "Il vertice della piramide.", 500},
}

func roleFor(totalRuns int) models.ProfileRole {
	current := roleLadder[0]
	var next *roleRung
	for i := range roleLadder {
		if totalRuns >= roleLadder[i].min {
			current = roleLadder[i]
			if i+1 < len(roleLadder) {
				next = &roleLadder[i+1]
			} else {
				next = nil
			}
		}
	}
	role := models.ProfileRole{
		Key:  current.key,
		Name: current.name,
		Desc: current.desc,
		Min:  current.min,
	}
	if next != nil {
		role.NextMin = &next.min
		role.ToNext = next.min - totalRuns
	}
	return role
}

// UserProfile aggregates a user's recorded runs into the profile the bot
// renders: run count, overall accuracy, best score and the ladder rung.
// GET /api/bot/user/profile?email=...  (also /api/bot/users/:email/profile)
func UserProfile(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.TrimSpace(c.Param("email"))
		if email == "" {
			email = strings.TrimSpace(c.Query("email"))
		}
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email required"})
			return
		}

		runs, err := s.RunsByEmail(c.Request.Context(), email)
		if err != nil {
			respondError(c, err)
			return
		}

		profile := models.ProfileResponse{
			Email:     email,
			TotalRuns: len(runs),
			Role:      roleFor(len(runs)),
		}

		var correct, answeredTotal int
		for i, run := range runs {
			correct += run.Correct
			answeredTotal += run.Correct + run.Wrong + run.Blank
			if profile.BestScoreTotal == nil || run.ScoreTotal > *profile.BestScoreTotal {
				score := run.ScoreTotal
				profile.BestScoreTotal = &score
			}
			if i == 0 {
				last := run
				profile.LastRun = &last
			}
		}
		if answeredTotal > 0 {
			profile.AccuracyPct = math.Round(float64(correct)/float64(answeredTotal)*1000) / 10
		}

		c.JSON(http.StatusOK, profile)
	}
}
