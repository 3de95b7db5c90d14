package sitecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/prospect-cli/internal/model"
)

const fullPage = `<!doctype html><html><head>
<TITLE>Padaria Central</TITLE>
<meta name="description" content="Pães artesanais em Curitiba">
<meta name='viewport' content="width=device-width, initial-scale=1">
</head><body><h1 class="hero">Bem-vindo</h1></body></html>`

func TestExtractSignals(t *testing.T) {
	s := ExtractSignals(fullPage, "https://padaria.com.br")
	assert.Equal(t, Signals{
		Title:           true,
		MetaDescription: true,
		H1:              true,
		Viewport:        true,
		HTTPS:           true,
	}, s)

	empty := ExtractSignals(`<html><head><title></title></head><h1></h1></html>`, "http://x.com")
	assert.False(t, empty.Title, "empty title does not count")
	assert.False(t, empty.H1, "empty h1 does not count")
	assert.False(t, empty.HTTPS)
}

func TestExtractSignals_NoIndex(t *testing.T) {
	html := `<meta name="robots" content="noindex, nofollow">`
	assert.True(t, ExtractSignals(html, "").NoIndex)
	assert.False(t, ExtractSignals(`<meta name="robots" content="index">`, "").NoIndex)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 20, Score(Signals{}))
	assert.Equal(t, 100, Score(Signals{Title: true, MetaDescription: true, H1: true, Viewport: true, HTTPS: true}))
	assert.Equal(t, 40, Score(Signals{Title: true}))
	assert.Equal(t, 30, Score(Signals{HTTPS: true}))
	assert.Equal(t, 70, Score(Signals{Title: true, MetaDescription: true, HTTPS: true}))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		score int
		want  model.Classification
	}{
		{0, model.ClassificationWeakSite},
		{39, model.ClassificationWeakSite},
		{40, model.ClassificationSiteWithoutSEO},
		{69, model.ClassificationSiteWithoutSEO},
		{70, model.ClassificationSiteOK},
		{100, model.ClassificationSiteOK},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.score), "score %d", tc.score)
	}
}

func TestClassify_Monotonic(t *testing.T) {
	rank := map[model.Classification]int{
		model.ClassificationWeakSite:       0,
		model.ClassificationSiteWithoutSEO: 1,
		model.ClassificationSiteOK:         2,
	}
	for s := 1; s <= 100; s++ {
		assert.GreaterOrEqual(t, rank[Classify(s)], rank[Classify(s-1)])
	}
}
