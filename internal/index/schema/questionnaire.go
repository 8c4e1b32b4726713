package schema

import "fmt"

// Questionnaire is the ordered set of onboarding questions asked when a new
// target language is requested.
//
// TdID is the questionnaire id assigned by the remote system. It is the
// natural key; Slug is informational only.
type Questionnaire struct {
	ID        int64       `json:"-" yaml:"-" toml:"-"`
	Slug      string      `json:"slug" yaml:"slug" toml:"slug"`
	Name      string      `json:"name" yaml:"name" toml:"name"`
	Direction string      `json:"direction" yaml:"direction" toml:"direction"`
	TdID      int64       `json:"questionnaire_id" yaml:"questionnaire_id" toml:"questionnaire_id"`
	Questions []*Question `json:"questions" yaml:"questions" toml:"questions"`
}

// Validate checks if the Questionnaire has valid field values.
// Questions are validated separately as they are added.
func (q *Questionnaire) Validate() error {
	if q.TdID <= 0 {
		return fmt.Errorf("questionnaire id must be positive (got %d)", q.TdID)
	}
	if q.Slug == "" {
		return fmt.Errorf("slug is required for questionnaire %d", q.TdID)
	}
	if q.Name == "" {
		return fmt.Errorf("name is required for questionnaire %d", q.TdID)
	}
	if !ValidDirection(q.Direction) {
		return fmt.Errorf("invalid direction %q for questionnaire %d", q.Direction, q.TdID)
	}
	return nil
}

// Question is one question of a questionnaire.
//
// DependsOn holds the remote id of another question in the same
// questionnaire; 0 means the question has no dependency.
type Question struct {
	ID         int64  `json:"-" yaml:"-" toml:"-"`
	Text       string `json:"text" yaml:"text" toml:"text"`
	Help       string `json:"help" yaml:"help" toml:"help"`
	IsRequired bool   `json:"required" yaml:"required" toml:"required"`
	InputType  string `json:"input_type" yaml:"input_type" toml:"input_type"`
	Sort       int    `json:"sort" yaml:"sort" toml:"sort"`
	DependsOn  int64  `json:"depends_on,omitempty" yaml:"depends_on,omitempty" toml:"depends_on,omitempty"`
	TdID       int64  `json:"id" yaml:"id" toml:"id"`
}

// Validate checks if the Question has valid field values.
func (q *Question) Validate() error {
	if q.TdID <= 0 {
		return fmt.Errorf("question id must be positive (got %d)", q.TdID)
	}
	if q.Text == "" {
		return fmt.Errorf("text is required for question %d", q.TdID)
	}
	if q.InputType == "" {
		return fmt.Errorf("input type is required for question %d", q.TdID)
	}
	if q.DependsOn < 0 {
		return fmt.Errorf("depends_on must not be negative for question %d", q.TdID)
	}
	if q.DependsOn == q.TdID {
		return fmt.Errorf("question %d cannot depend on itself", q.TdID)
	}
	return nil
}

// HasDependency reports whether the question depends on another question.
func (q *Question) HasDependency() bool {
	return q.DependsOn != 0
}
