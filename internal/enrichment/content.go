package enrichment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TextField accepts either a JSON string or a list of strings; lists are
// joined with newlines.
type TextField string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TextField) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = TextField(s)
		return nil
	}
	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected string or list: %w", err)
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case nil:
			continue
		case string:
			parts = append(parts, v)
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	*t = TextField(strings.Join(parts, "\n"))
	return nil
}

// Content is the generated copy of one race.
type Content struct {
	Summary     TextField `json:"summary"`
	OrgInfo     TextField `json:"org_info"`
	Benefits    TextField `json:"benefits"`
	SummaryPT   TextField `json:"summary_pt"`
	OrgInfoPT   TextField `json:"org_info_pt"`
	BenefitsPT  TextField `json:"benefits_pt"`
	ImagePrompt TextField `json:"image_prompt"`
}

// PlaceholderContent is used when generation is disabled.
func PlaceholderContent() Content {
	return Content{
		Summary:     "Placeholder summary",
		OrgInfo:     "Placeholder org_info",
		Benefits:    "Placeholder benefits",
		SummaryPT:   "Placeholder summary_pt",
		OrgInfoPT:   "Placeholder org_info_pt",
		BenefitsPT:  "Placeholder benefits_pt",
		ImagePrompt: "Placeholder image",
	}
}

func (c Content) empty() bool {
	return strings.TrimSpace(string(c.Summary)) == "" &&
		strings.TrimSpace(string(c.OrgInfo)) == "" &&
		strings.TrimSpace(string(c.Benefits)) == ""
}
