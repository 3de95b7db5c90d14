package interest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "nao quero orcamento", Normalize("NÃO quero Orçamento"))
	assert.Equal(t, "apresentacao reuniao preco", Normalize("Apresentação reunião preço"))
	assert.Equal(t, "plain", Normalize("plain"))
}

func TestDetect_OptOutShortCircuits(t *testing.T) {
	// "tenho interesse" is also an interest phrase; opt-out wins.
	r := Detect("Não tenho interesse, obrigado")
	assert.Equal(t, Result{OptedOut: true, Keywords: []string{}, Confidence: 1.0}, r)

	r = Detect("por favor REMOVER meu email")
	assert.True(t, r.OptedOut)
	assert.False(t, r.Interest)

	r = Detect("nao me envie mais nada")
	assert.True(t, r.OptedOut, "unaccented text still matches")
}

func TestDetect_Interest(t *testing.T) {
	r := Detect("Olá! Quanto custa? Quero um orçamento e uma proposta.")
	assert.True(t, r.Interest)
	assert.False(t, r.OptedOut)
	assert.Equal(t, []string{"quanto custa", "orçamento", "proposta"}, r.Keywords)
	assert.InDelta(t, 0.9, r.Confidence, 1e-9)
}

func TestDetect_ConfidenceCaps(t *testing.T) {
	r := Detect("quero saber mais, quanto custa, qual o valor, preço e orçamento")
	assert.GreaterOrEqual(t, len(r.Keywords), 4)
	assert.Equal(t, 1.0, r.Confidence)
}

func TestDetect_Neutral(t *testing.T) {
	r := Detect("Recebi seu email, obrigado.")
	assert.False(t, r.Interest)
	assert.False(t, r.OptedOut)
	assert.Empty(t, r.Keywords)
	assert.Zero(t, r.Confidence)
}

func TestDetect_KeywordsAreOriginalSpelling(t *testing.T) {
	r := Detect("podemos marcar uma reuniao?")
	assert.Equal(t, []string{"marcar uma reunião"}, r.Keywords)
	assert.InDelta(t, 0.3, r.Confidence, 1e-9)
}
