// Package interest reads inbound replies for opt-out or buying signals and
// moves the lead accordingly.
package interest

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Opt-out phrases are checked first and in order; the first hit wins.
var optOutKeywords = []string{
	"não tenho interesse",
	"não quero",
	"pare de enviar",
	"remover",
	"descadastrar",
	"não me envie",
	"spam",
	"cancelar",
}

var interestKeywords = []string{
	"quero saber mais",
	"gostaria de saber",
	"quanto custa",
	"qual o valor",
	"valor",
	"preço",
	"orçamento",
	"fazer um site",
	"criar um site",
	"criar site",
	"novo site",
	"melhorar o site",
	"atualizar o site",
	"reformular",
	"interessado",
	"me interessa",
	"tenho interesse",
	"pode me ligar",
	"meu contato",
	"meu telefone",
	"vamos conversar",
	"marcar uma reunião",
	"agendar",
	"proposta",
	"apresentação",
}

// confidencePerMatch is the confidence each interest keyword contributes.
const confidencePerMatch = 0.3

type keyword struct {
	raw, normalized string
}

var (
	optOutSet   = compile(optOutKeywords)
	interestSet = compile(interestKeywords)
)

func compile(words []string) []keyword {
	out := make([]keyword, len(words))
	for i, w := range words {
		out[i] = keyword{raw: w, normalized: Normalize(w)}
	}
	return out
}

// Result is the outcome of scanning one message.
type Result struct {
	Interest   bool     `json:"interest_detected"`
	OptedOut   bool     `json:"opted_out"`
	Keywords   []string `json:"interest_keywords"`
	Confidence float64  `json:"confidence"`
}

// Normalize lowercases s and strips diacritics.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Detect scans message by substring match on normalized text. Opt-out
// short-circuits; otherwise each interest keyword found adds confidence.
func Detect(message string) Result {
	msg := Normalize(message)

	for _, k := range optOutSet {
		if strings.Contains(msg, k.normalized) {
			return Result{OptedOut: true, Keywords: []string{}, Confidence: 1.0}
		}
	}

	found := []string{}
	for _, k := range interestSet {
		if strings.Contains(msg, k.normalized) {
			found = append(found, k.raw)
		}
	}
	return Result{
		Interest:   len(found) > 0,
		Keywords:   found,
		Confidence: math.Min(float64(len(found))*confidencePerMatch, 1.0),
	}
}
