package schema

import "testing"

func TestCatalog_Validate(t *testing.T) {
	tests := []struct {
		name    string
		catalog Catalog
		wantErr bool
		errMsg  string
	}{
		{"https", Catalog{Slug: "langnames", URL: "https://td.unfoldingword.org/exports/langnames.json"}, false, ""},
		{"file mirror", Catalog{Slug: "langnames", URL: "file:///var/mirror/langnames.json"}, false, ""},
		{"missing slug", Catalog{URL: "https://example.com"}, true, "slug is required"},
		{"missing url", Catalog{Slug: "langnames"}, true, "url is required for catalog langnames"},
		{"relative url", Catalog{Slug: "langnames", URL: "exports/langnames.json"}, true, "must be absolute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.catalog.Validate()
			checkValidateErr(t, err, tt.wantErr, tt.errMsg)
		})
	}
}
