package sitecheck

import (
	"regexp"
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Score weights. A reachable site starts at scoreBase; the rest are earned.
const (
	scoreBase            = 20
	scoreTitle           = 20
	scoreMetaDescription = 20
	scoreH1              = 15
	scoreViewport        = 15
	scoreHTTPS           = 10

	// Classification thresholds.
	weakBelow       = 40
	withoutSEOBelow = 70
)

var (
	titleRe    = regexp.MustCompile(`(?i)<title[^>]*>.+</title>`)
	metaDescRe = regexp.MustCompile(`(?i)<meta[^>]*name=["']description["'][^>]*>`)
	h1Re       = regexp.MustCompile(`(?i)<h1[^>]*>.+</h1>`)
	viewportRe = regexp.MustCompile(`(?i)<meta[^>]*name=["']viewport["'][^>]*>`)
	noindexRe  = regexp.MustCompile(`(?i)<meta[^>]*name=["']robots["'][^>]*content=["'][^"']*noindex[^"']*["'][^>]*>`)
)

// Signals are the SEO markers found in a page.
type Signals struct {
	Title           bool `json:"title"`
	MetaDescription bool `json:"meta_description"`
	H1              bool `json:"h1"`
	Viewport        bool `json:"viewport"`
	HTTPS           bool `json:"https"`
	NoIndex         bool `json:"noindex"`
}

// ExtractSignals parses html textually. The page is never executed.
func ExtractSignals(html, url string) Signals {
	return Signals{
		Title:           titleRe.MatchString(html),
		MetaDescription: metaDescRe.MatchString(html),
		H1:              h1Re.MatchString(html),
		Viewport:        viewportRe.MatchString(html),
		HTTPS:           strings.HasPrefix(strings.ToLower(url), "https://"),
		NoIndex:         noindexRe.MatchString(html),
	}
}

// Score converts signals into a 20..100 quality score for a reachable site.
func Score(s Signals) int {
	score := scoreBase
	if s.Title {
		score += scoreTitle
	}
	if s.MetaDescription {
		score += scoreMetaDescription
	}
	if s.H1 {
		score += scoreH1
	}
	if s.Viewport {
		score += scoreViewport
	}
	if s.HTTPS {
		score += scoreHTTPS
	}
	return score
}

// Classify maps a score to a site classification.
func Classify(score int) model.Classification {
	switch {
	case score < weakBelow:
		return model.ClassificationWeakSite
	case score < withoutSEOBelow:
		return model.ClassificationSiteWithoutSEO
	default:
		return model.ClassificationSiteOK
	}
}
