// Package sitecheck classifies a lead's website by reachability and basic
// SEO markers.
package sitecheck

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Analysis is the outcome of analyzing one website.
type Analysis struct {
	Active         bool                 `json:"active"`
	Score          int                  `json:"score"`
	Indexed        bool                 `json:"indexed"`
	Classification model.Classification `json:"classification"`
	Block          BlockType            `json:"block,omitempty"`
}

// Patch converts the analysis into the lead update that persists it.
func (a Analysis) Patch(analyzedAt time.Time) model.LeadPatch {
	return model.LeadPatch{
		Classification: model.Ptr(a.Classification),
		SiteActive:     model.Ptr(a.Active),
		SiteScore:      model.Ptr(a.Score),
		SiteIndexed:    model.Ptr(a.Indexed),
		SiteAnalyzedAt: model.Ptr(analyzedAt),
	}
}

var (
	noSite   = Analysis{Classification: model.ClassificationNoSite}
	weakSite = Analysis{Classification: model.ClassificationWeakSite}
)

// Classifier analyzes websites through a Fetcher.
type Classifier struct {
	fetcher Fetcher
}

// NewClassifier creates a Classifier.
func NewClassifier(f Fetcher) *Classifier {
	return &Classifier{fetcher: f}
}

// Analyze never fails: a missing website is no_site without a network call,
// and any fetch failure or non-2xx status is weak_site. A non-2xx page behind
// a bot wall stays weak_site with Block set.
func (c *Classifier) Analyze(ctx context.Context, website *string) Analysis {
	if website == nil || strings.TrimSpace(*website) == "" {
		return noSite
	}
	url := strings.TrimSpace(*website)
	log := zap.L().With(zap.String("website", url))

	page, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		log.Debug("sitecheck: fetch failed", zap.Error(err))
		return weakSite
	}
	if !page.OK() {
		log.Debug("sitecheck: non-2xx response", zap.Int("status", page.StatusCode))
		a := weakSite
		if blocked, kind := DetectBlock(page); blocked {
			log.Info("sitecheck: bot wall detected", zap.String("block_type", string(kind)))
			a.Block = kind
		}
		return a
	}

	a := analyze(string(page.Body), url)
	if blocked, kind := DetectBlock(page); blocked {
		log.Info("sitecheck: bot wall detected", zap.String("block_type", string(kind)))
		a.Block = kind
	}
	return a
}

func analyze(html, url string) Analysis {
	sig := ExtractSignals(html, url)
	score := Score(sig)
	return Analysis{
		Active:         true,
		Score:          score,
		Indexed:        !sig.NoIndex,
		Classification: Classify(score),
	}
}
