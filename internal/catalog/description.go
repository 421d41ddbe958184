package catalog

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// DescriptionRenderer turns merchant markdown into sanitized HTML
type DescriptionRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewDescriptionRenderer creates a renderer with the UGC sanitizing policy
func NewDescriptionRenderer() *DescriptionRenderer {
	return &DescriptionRenderer{
		md:     goldmark.New(),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render returns "" for blank input or when markdown conversion fails
func (r *DescriptionRenderer) Render(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return ""
	}
	return strings.TrimSpace(r.policy.Sanitize(buf.String()))
}
