package exam

import (
	"math/rand"
	"strings"

	"dinomed-server/models"
	"dinomed-server/utils"
)

// filterPool returns the questions of the bank eligible for one section draw:
// exact subject (case-insensitive), exact type, tag intersection after
// normalization (empty filter matches everything), optional difficulty.
func filterPool(bank []models.Question, subject string, qType models.QuestionType, tags []string, difficulty string) []models.Question {
	wanted := utils.NormalizeTagSet(tags)
	var pool []models.Question
	for _, q := range bank {
		if !strings.EqualFold(q.Subject, subject) || q.Type != qType {
			continue
		}
		if difficulty != "" && !strings.EqualFold(q.Difficulty, difficulty) {
			continue
		}
		if len(wanted) > 0 && !tagsIntersect(q.Tags, wanted) {
			continue
		}
		pool = append(pool, q)
	}
	return pool
}

func tagsIntersect(tags []string, wanted map[string]bool) bool {
	for _, t := range tags {
		if wanted[utils.NormalizeTag(t)] {
			return true
		}
	}
	return false
}

// sample draws a uniform random subset of size n, without replacement. The
// pool slice is not modified.
func sample(rng *rand.Rand, pool []models.Question, n int) []models.Question {
	shuffled := make([]models.Question, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

// orderSections arranges sections block by block in the caller's subject
// order. Sections whose subject is not named keep their relative order after
// the ordered ones.
func orderSections(sections []models.SectionRequest, order []string) []models.SectionRequest {
	if len(order) == 0 {
		return sections
	}
	ordered := make([]models.SectionRequest, 0, len(sections))
	taken := make(map[int]bool, len(sections))
	for _, subject := range order {
		for i, sec := range sections {
			if !taken[i] && strings.EqualFold(sec.Subject, subject) {
				ordered = append(ordered, sec)
				taken[i] = true
			}
		}
	}
	for i, sec := range sections {
		if !taken[i] {
			ordered = append(ordered, sec)
		}
	}
	return ordered
}

// BuildQuestionList draws the full question set for a session. Subject blocks
// follow the requested order; within a block the order is random. A question
// id is never drawn twice, even across independently sampled sections. When a
// filtered pool is smaller than its request, the draw fails with an
// InsufficientPoolError and no partial list is returned.
func BuildQuestionList(bank []models.Question, sections []models.SectionRequest, order []string, seed int64) ([]models.Question, error) {
	rng := rand.New(rand.NewSource(seed))
	usedIDs := make(map[string]bool)
	var picked []models.Question

	drawOne := func(sec models.SectionRequest, qType models.QuestionType, count int) error {
		if count <= 0 {
			return nil
		}
		pool := filterPool(bank, sec.Subject, qType, sec.Tags, sec.Difficulty)
		fresh := pool[:0:0]
		for _, q := range pool {
			if !usedIDs[q.ID] {
				fresh = append(fresh, q)
			}
		}
		if len(fresh) < count {
			return &InsufficientPoolError{
				Subject:   sec.Subject,
				Type:      qType,
				Requested: count,
				Available: len(fresh),
				Tags:      sec.Tags,
			}
		}
		for _, q := range sample(rng, fresh, count) {
			usedIDs[q.ID] = true
			picked = append(picked, q)
		}
		return nil
	}

	for _, sec := range orderSections(sections, order) {
		if err := drawOne(sec, models.MultipleChoice, sec.MCQCount); err != nil {
			return nil, err
		}
		if err := drawOne(sec, models.FillIn, sec.FillCount); err != nil {
			return nil, err
		}
	}
	return picked, nil
}
