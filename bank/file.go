package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"dinomed-server/models"
)

// FileBank reads the bank from a JSON or YAML export on disk. The file is
// re-read on every fetch so authoring edits show up without a restart.
type FileBank struct {
	path string
}

func NewFileBank(path string) *FileBank {
	return &FileBank{path: path}
}

// record is the authoring file shape. The authoring tool historically wrote
// Italian field names and two correct-answer encodings (letter or index); all
// of that is resolved here, once, into the canonical tagged Question.
type record struct {
	ID      string `json:"id" yaml:"id"`
	Subject string `json:"subject" yaml:"subject"`
	Materia string `json:"materia" yaml:"materia"` // legacy alias

	Type string `json:"type" yaml:"type"`
	Tipo string `json:"tipo" yaml:"tipo"` // legacy alias

	Prompt string `json:"prompt" yaml:"prompt"`
	Testo  string `json:"testo" yaml:"testo"` // legacy alias

	Tags []string `json:"tags" yaml:"tags"`
	Tag  []string `json:"tag" yaml:"tag"` // legacy alias

	Difficulty string `json:"difficulty" yaml:"difficulty"`
	Difficolta string `json:"difficolta" yaml:"difficolta"` // legacy alias

	Options []string `json:"options" yaml:"options"`
	Opzioni []string `json:"opzioni" yaml:"opzioni"` // legacy alias

	CorrectIndex  *int    `json:"correct_index" yaml:"correct_index"`
	CorrettaIndex *int    `json:"corretta_index" yaml:"corretta_index"` // legacy alias
	Corretta      *string `json:"corretta" yaml:"corretta"`             // legacy letter form

	Accepted []string `json:"accepted" yaml:"accepted"`
	Risposte []string `json:"risposte" yaml:"risposte"` // legacy alias
	Risposta string   `json:"risposta" yaml:"risposta"` // oldest single-answer form

	Explanation string `json:"explanation" yaml:"explanation"`
	Spiegazione string `json:"spiegazione" yaml:"spiegazione"` // legacy alias
}

func coalesce(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func coalesceList(vals ...[]string) []string {
	for _, v := range vals {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}

func (r record) toQuestion() (models.Question, error) {
	q := models.Question{
		ID:          r.ID,
		Subject:     coalesce(r.Subject, r.Materia),
		Prompt:      coalesce(r.Prompt, r.Testo),
		Tags:        cleanTags(coalesceList(r.Tags, r.Tag)),
		Difficulty:  coalesce(r.Difficulty, r.Difficolta),
		Explanation: coalesce(r.Explanation, r.Spiegazione),
	}

	switch strings.ToLower(coalesce(r.Type, r.Tipo)) {
	case "multiple-choice", "scelta":
		q.Type = models.MultipleChoice
		q.Options = coalesceList(r.Options, r.Opzioni)
		idx, err := resolveCorrectIndex(r)
		if err != nil {
			return q, fmt.Errorf("question %s: %w", r.ID, err)
		}
		q.CorrectIndex = idx
	case "fill-in", "completamento":
		q.Type = models.FillIn
		q.Accepted = coalesceList(r.Accepted, r.Risposte)
		if len(q.Accepted) == 0 && strings.TrimSpace(r.Risposta) != "" {
			q.Accepted = []string{strings.TrimSpace(r.Risposta)}
		}
	default:
		return q, fmt.Errorf("question %s: unknown type %q", r.ID, coalesce(r.Type, r.Tipo))
	}

	if err := q.Validate(); err != nil {
		return q, err
	}
	return q, nil
}

func resolveCorrectIndex(r record) (int, error) {
	if r.CorrectIndex != nil {
		return *r.CorrectIndex, nil
	}
	if r.CorrettaIndex != nil {
		return *r.CorrettaIndex, nil
	}
	if r.Corretta != nil {
		letter := strings.ToUpper(strings.TrimSpace(*r.Corretta))
		if len(letter) == 1 && letter[0] >= 'A' && letter[0] <= 'E' {
			return int(letter[0] - 'A'), nil
		}
		return 0, fmt.Errorf("correct letter must be A-E, got %q", *r.Corretta)
	}
	return 0, fmt.Errorf("no correct answer given")
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (f *FileBank) load() ([]models.Question, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading question bank %s: %w", f.path, err)
	}

	var records []record
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("parsing question bank %s: %w", f.path, err)
		}
	default:
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("parsing question bank %s: %w", f.path, err)
		}
	}

	questions := make([]models.Question, 0, len(records))
	for _, r := range records {
		q, err := r.toQuestion()
		if err != nil {
			return nil, fmt.Errorf("question bank %s: %w", f.path, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (f *FileBank) FetchAll(_ context.Context) ([]models.Question, error) {
	return f.load()
}

func (f *FileBank) FetchByID(_ context.Context, id string) (models.Question, error) {
	questions, err := f.load()
	if err != nil {
		return models.Question{}, err
	}
	for _, q := range questions {
		if q.ID == id {
			return q, nil
		}
	}
	return models.Question{}, ErrQuestionNotFound
}
