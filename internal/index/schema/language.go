package schema

import "fmt"

// Text directions accepted for languages and questionnaires.
const (
	DirectionLTR = "ltr"
	DirectionRTL = "rtl"
)

// ValidDirection reports whether dir is a known text direction.
func ValidDirection(dir string) bool {
	return dir == DirectionLTR || dir == DirectionRTL
}

// SourceLanguage is a language that source content is translated from.
type SourceLanguage struct {
	ID        int64  `json:"-" yaml:"-" toml:"-"`
	Slug      string `json:"slug" yaml:"slug" toml:"slug"`
	Name      string `json:"name" yaml:"name" toml:"name"`
	Direction string `json:"direction" yaml:"direction" toml:"direction"`
}

// Validate checks if the SourceLanguage has valid field values.
func (l *SourceLanguage) Validate() error {
	if l.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !ValidDirection(l.Direction) {
		return fmt.Errorf("invalid direction %q for language %s", l.Direction, l.Slug)
	}
	return nil
}

// TargetLanguage is a language that translation work is produced into.
//
// Temporary is set on languages read from the temporary partition: codes
// proposed by the community that are still pending approval.
type TargetLanguage struct {
	Slug              string `json:"slug" yaml:"slug" toml:"slug"`
	Name              string `json:"name" yaml:"name" toml:"name"`
	AnglicizedName    string `json:"anglicized_name,omitempty" yaml:"anglicized_name,omitempty" toml:"anglicized_name,omitempty"`
	Direction         string `json:"direction" yaml:"direction" toml:"direction"`
	Region            string `json:"region,omitempty" yaml:"region,omitempty" toml:"region,omitempty"`
	IsGatewayLanguage bool   `json:"is_gateway_language" yaml:"is_gateway_language" toml:"is_gateway_language"`
	Temporary         bool   `json:"temporary,omitempty" yaml:"temporary,omitempty" toml:"temporary,omitempty"`
}

// Validate checks if the TargetLanguage has valid field values.
// The anglicized name is only required for approved languages.
func (l *TargetLanguage) Validate() error {
	if l.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !l.Temporary && l.AnglicizedName == "" {
		return fmt.Errorf("anglicized name is required for %s", l.Slug)
	}
	if !ValidDirection(l.Direction) {
		return fmt.Errorf("invalid direction %q for language %s", l.Direction, l.Slug)
	}
	return nil
}

// Approval links a temporary target language code to the approved code that
// replaced it.
type Approval struct {
	TempSlug     string `json:"temp_slug" yaml:"temp_slug" toml:"temp_slug"`
	ApprovedSlug string `json:"approved_slug" yaml:"approved_slug" toml:"approved_slug"`
}

// Validate checks if the Approval has valid field values.
func (a *Approval) Validate() error {
	if a.TempSlug == "" {
		return fmt.Errorf("temporary code is required")
	}
	if a.ApprovedSlug == "" {
		return fmt.Errorf("approved code is required")
	}
	if a.TempSlug == a.ApprovedSlug {
		return fmt.Errorf("temporary code %s cannot be approved as itself", a.TempSlug)
	}
	return nil
}
