package outreach

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 1024

	systemPrompt = "Você é um assistente de copywriting. Responda apenas em JSON válido."
)

// Draft is a subject and body pair.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Personalizer lightly adapts a filled template to one lead.
type Personalizer interface {
	Personalize(ctx context.Context, lead *model.Lead, classification model.Classification, d Draft) (Draft, error)
}

// AnthropicPersonalizer asks Claude to rewrite the draft.
type AnthropicPersonalizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	breaker   *resilience.CircuitBreaker
}

// NewAnthropicPersonalizer creates a personalizer. A nil breaker gets a
// default one.
func NewAnthropicPersonalizer(c anthropic.Client, model string, maxTokens int64, cb *resilience.CircuitBreaker) *AnthropicPersonalizer {
	if model == "" {
		model = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if cb == nil {
		cb = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "anthropic"})
	}
	return &AnthropicPersonalizer{client: c, model: model, maxTokens: maxTokens, breaker: cb}
}

// Personalize implements Personalizer. Any failure returns an error and the
// caller keeps the original draft.
func (p *AnthropicPersonalizer) Personalize(ctx context.Context, lead *model.Lead, classification model.Classification, d Draft) (Draft, error) {
	resp, err := resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return p.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     p.model,
			MaxTokens: p.maxTokens,
			System:    systemPrompt,
			Messages:  []anthropic.Message{{Role: "user", Content: buildPrompt(lead, classification, d)}},
		})
	})
	if err != nil {
		return d, eris.Wrap(err, "outreach: personalize")
	}
	resp.Usage.LogCost(p.model, "personalize")

	out, err := parseDraft(resp.Text())
	if err != nil {
		return d, err
	}
	return out, nil
}

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// parseDraft pulls the first JSON object out of a model reply.
func parseDraft(text string) (Draft, error) {
	raw := jsonObjectRe.FindString(text)
	if raw == "" {
		return Draft{}, eris.New("outreach: no JSON object in reply")
	}
	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Draft{}, eris.Wrap(err, "outreach: parse reply")
	}
	if strings.TrimSpace(d.Subject) == "" || strings.TrimSpace(d.Body) == "" {
		return Draft{}, eris.New("outreach: reply missing subject or body")
	}
	return d, nil
}

func buildPrompt(lead *model.Lead, classification model.Classification, d Draft) string {
	website := "não possui"
	if lead.HasWebsite() {
		website = *lead.Website
	}
	class := string(classification)
	if class == "" {
		class = "não analisado"
	}

	var b strings.Builder
	b.WriteString("Você é um especialista em copywriting para prospecção B2B de agências de criação de sites.\n\n")
	b.WriteString("Dados do lead:\n")
	fmt.Fprintf(&b, "- Empresa: %s\n", lead.CompanyName)
	fmt.Fprintf(&b, "- Segmento: %s\n", orDefault(lead.Segment, "não informado"))
	fmt.Fprintf(&b, "- Cidade: %s\n", orDefault(lead.City, "não informada"))
	fmt.Fprintf(&b, "- Site: %s\n", website)
	fmt.Fprintf(&b, "- Classificação: %s\n\n", class)
	b.WriteString("Mensagem atual:\n")
	fmt.Fprintf(&b, "Assunto: %s\n", d.Subject)
	fmt.Fprintf(&b, "Corpo: %s\n\n", d.Body)
	b.WriteString("Sua tarefa: Personalize sutilmente a mensagem para torná-la mais relevante para este lead específico. ")
	b.WriteString("Mantenha o tom consultivo e profissional. NÃO mude a estrutura principal, apenas adicione detalhes ")
	b.WriteString("relevantes ao segmento/cidade quando possível.\n\n")
	b.WriteString("Responda APENAS no formato JSON:\n")
	b.WriteString(`{"subject": "assunto personalizado", "body": "corpo personalizado"}`)
	return b.String()
}
