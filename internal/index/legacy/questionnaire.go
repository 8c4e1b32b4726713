package legacy

import (
	"context"

	"github.com/unfoldingword/door43-client/internal/index/schema"
)

// ParseNewLanguageQuestions indexes the new language questionnaires:
//
//	{"languages": [{"slug": "en", "name": "English", "dir": "ltr", "questionnaire_id": 1,
//	  "questions": [{"id": 1, "text": "", "help": "", "required": true,
//	                 "input_type": "string", "sort": 1, "depends_on": null}]}]}
//
// Progress is tagged "new-language-questions". With exactly one questionnaire
// in the payload an event is emitted per question (max = its question count);
// otherwise one event is emitted per questionnaire (max = questionnaire count).
func ParseNewLanguageQuestions(ctx context.Context, data []byte, lib Writer, progress ProgressFunc) error {
	root, err := decodeObject(SlugNewLanguageQuestions, data)
	if err != nil {
		return err
	}
	languages, err := root.list("languages")
	if err != nil {
		return err
	}

	perQuestion := len(languages) == 1
	for i, el := range languages {
		q, questions, err := questionnaire(el)
		if err != nil {
			return err
		}

		localID, err := lib.AddQuestionnaire(ctx, q)
		if err != nil {
			return err
		}

		for j, qel := range questions {
			question, err := questionFrom(qel)
			if err != nil {
				return err
			}
			if err := lib.AddQuestion(ctx, question, localID); err != nil {
				return err
			}
			if perQuestion {
				report(progress, SlugNewLanguageQuestions, len(questions), j+1)
			}
		}

		if !perQuestion {
			report(progress, SlugNewLanguageQuestions, len(languages), i+1)
		}
	}
	return nil
}

func questionnaire(el object) (*schema.Questionnaire, []object, error) {
	var q schema.Questionnaire
	var err error

	if q.Slug, err = el.str("slug"); err != nil {
		return nil, nil, err
	}
	if q.Name, err = el.str("name"); err != nil {
		return nil, nil, err
	}
	if q.Direction, err = direction(el, "dir"); err != nil {
		return nil, nil, err
	}
	if q.TdID, err = el.integer("questionnaire_id"); err != nil {
		return nil, nil, err
	}
	if err := el.check(&q); err != nil {
		return nil, nil, err
	}
	questions, err := el.list("questions")
	if err != nil {
		return nil, nil, err
	}
	return &q, questions, nil
}

func questionFrom(el object) (*schema.Question, error) {
	var q schema.Question
	var err error

	if q.TdID, err = el.integer("id"); err != nil {
		return nil, err
	}
	if q.Text, err = el.str("text"); err != nil {
		return nil, err
	}
	if q.Help, err = el.str("help"); err != nil {
		return nil, err
	}
	if q.IsRequired, err = el.boolean("required"); err != nil {
		return nil, err
	}
	if q.InputType, err = el.str("input_type"); err != nil {
		return nil, err
	}
	sort, err := el.integer("sort")
	if err != nil {
		return nil, err
	}
	q.Sort = int(sort)
	if q.DependsOn, err = el.optInt("depends_on"); err != nil {
		return nil, err
	}
	if err := el.check(&q); err != nil {
		return nil, err
	}
	return &q, nil
}
