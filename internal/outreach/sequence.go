// Package outreach picks the email template for a lead, fills it in,
// optionally personalizes it with an LLM, and sends it.
package outreach

import (
	"html"
	"regexp"
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
)

// MessageTypeFor returns the sequence step that follows status. Statuses
// outside the automated sequence return initial with ok=false.
func MessageTypeFor(status model.Status) (model.MessageType, bool) {
	switch status {
	case model.StatusNew:
		return model.MessageInitial, true
	case model.StatusContacted:
		return model.MessageFollowUp1, true
	case model.StatusFollowUp1:
		return model.MessageFollowUp2, true
	default:
		return model.MessageInitial, false
	}
}

// NextStatus is the status a lead moves to once mt has been sent.
func NextStatus(mt model.MessageType) model.Status {
	switch mt {
	case model.MessageFollowUp1:
		return model.StatusFollowUp1
	case model.MessageFollowUp2:
		return model.StatusFollowUp2
	default:
		return model.StatusContacted
	}
}

var (
	placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)
	// anyPlaceholderRe catches whatever the key pattern misses: dashes,
	// dots, inner spaces, empty braces.
	anyPlaceholderRe = regexp.MustCompile(`\{\{[^}]*\}\}`)
	markupRe         = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(\s[^<>]*)?/?>`)
)

// Fill substitutes lead fields into a plain-text template such as a subject.
// Unknown placeholders are removed.
func Fill(text string, lead *model.Lead) string {
	return fill(text, lead, func(v string) string { return v })
}

// FillBody fills a message body. When the template carries HTML markup the
// lead values are escaped so a company name cannot inject tags; the template
// markup itself is kept.
func FillBody(text string, lead *model.Lead) string {
	if !HasMarkup(text) {
		return Fill(text, lead)
	}
	return fill(text, lead, html.EscapeString)
}

func fill(text string, lead *model.Lead, escape func(string) string) string {
	values := map[string]string{
		"company_name": orDefault(lead.CompanyName, "sua empresa"),
		"segment":      orDefault(lead.Segment, "seu segmento"),
		"city":         orDefault(lead.City, "sua região"),
		"state":        lead.State,
		"website":      "",
	}
	if lead.Website != nil {
		values["website"] = *lead.Website
	}

	out := placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		return escape(values[key])
	})
	return StripPlaceholders(out)
}

// StripPlaceholders removes any {{...}} token left in text.
func StripPlaceholders(text string) string {
	return anyPlaceholderRe.ReplaceAllString(text, "")
}

// HasMarkup reports whether body already contains HTML tags.
func HasMarkup(body string) bool {
	return markupRe.MatchString(body)
}

// toHTML renders a body for the HTML part. Markup bodies go out as they
// are; plain bodies are escaped and get <br> line breaks.
func toHTML(body string, markup bool) string {
	if markup {
		return body
	}
	return strings.ReplaceAll(html.EscapeString(body), "\n", "<br>")
}

// toText renders a body for the plain-text part.
func toText(body string, markup bool) string {
	if !markup {
		return body
	}
	text := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n").Replace(body)
	text = markupRe.ReplaceAllString(text, "")
	return strings.TrimSpace(html.UnescapeString(text))
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
