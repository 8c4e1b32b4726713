package legacy

import (
	"context"

	"github.com/unfoldingword/door43-client/internal/index/schema"
)

// ParseLangnames indexes the approved target language list:
//
//	[{"lc": "aa", "ln": "Afaraf", "ang": "Afar", "ld": "ltr", "gl": false, "lr": "Africa"}]
//
// gl defaults to false and lr to "". One "langnames" progress event is
// emitted per element.
func ParseLangnames(ctx context.Context, data []byte, lib Writer, progress ProgressFunc) error {
	return parseTargetLanguages(ctx, SlugLangnames, data, progress, lib.AddTargetLanguage, true)
}

// ParseTempLangnames indexes the temporary target language list. It has the
// langnames shape except that ang is optional.
func ParseTempLangnames(ctx context.Context, data []byte, lib Writer, progress ProgressFunc) error {
	return parseTargetLanguages(ctx, SlugTempLangnames, data, progress, lib.AddTempTargetLanguage, false)
}

func parseTargetLanguages(
	ctx context.Context,
	catalog string,
	data []byte,
	progress ProgressFunc,
	add func(context.Context, *schema.TargetLanguage) error,
	requireAnglicized bool,
) error {
	elements, err := decodeList(catalog, data)
	if err != nil {
		return err
	}

	for i, el := range elements {
		lang, err := targetLanguage(el, requireAnglicized)
		if err != nil {
			return err
		}
		lang.Temporary = !requireAnglicized
		if err := el.check(lang); err != nil {
			return err
		}
		if err := add(ctx, lang); err != nil {
			return err
		}
		report(progress, catalog, len(elements), i+1)
	}
	return nil
}

func targetLanguage(el object, requireAnglicized bool) (*schema.TargetLanguage, error) {
	var lang schema.TargetLanguage
	var err error

	if lang.Slug, err = el.str("lc"); err != nil {
		return nil, err
	}
	if lang.Name, err = el.str("ln"); err != nil {
		return nil, err
	}
	if requireAnglicized {
		lang.AnglicizedName, err = el.str("ang")
	} else {
		lang.AnglicizedName, err = el.optStr("ang")
	}
	if err != nil {
		return nil, err
	}
	if lang.Direction, err = direction(el, "ld"); err != nil {
		return nil, err
	}
	if lang.IsGatewayLanguage, err = el.optBool("gl"); err != nil {
		return nil, err
	}
	if lang.Region, err = el.optStr("lr"); err != nil {
		return nil, err
	}
	return &lang, nil
}

// direction reads a required ltr/rtl field.
func direction(el object, field string) (string, error) {
	dir, err := el.str(field)
	if err != nil {
		return "", err
	}
	if !schema.ValidDirection(dir) {
		return "", el.fail(field, ErrInvalidValue, "direction %q", dir)
	}
	return dir, nil
}

// ParseApprovedTempLangnames indexes approval links from temporary codes to
// approved codes. Each element maps one or more temporary codes:
//
//	[{"qaa-x-802d08": "kff-x-dmorla"}]
//
// One "approved-temp-langnames" progress event is emitted per element.
func ParseApprovedTempLangnames(ctx context.Context, data []byte, lib Writer, progress ProgressFunc) error {
	elements, err := decodeList(SlugApprovedTempLangnames, data)
	if err != nil {
		return err
	}

	for i, el := range elements {
		for _, tempSlug := range el.keys() {
			approvedSlug, err := el.str(tempSlug)
			if err != nil {
				return err
			}
			if approvedSlug == "" || approvedSlug == tempSlug {
				return el.fail(tempSlug, ErrInvalidValue, "approved code %q", approvedSlug)
			}
			if err := lib.ApproveTempTargetLanguage(ctx, tempSlug, approvedSlug); err != nil {
				return err
			}
		}
		report(progress, SlugApprovedTempLangnames, len(elements), i+1)
	}
	return nil
}
