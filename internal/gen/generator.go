package gen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/dgnsrekt/shadowbox/shadow"
)

// DefaultChatModel is used when no model is configured.
const DefaultChatModel = "gpt-4o-mini"

const scriptSystemPrompt = `You write short English practice scripts for ` +
	`language shadowing. Given a theme, produce natural spoken-English ` +
	`sentences a learner can repeat aloud, each with a Japanese translation. ` +
	`Keep sentences short (under 15 words) and conversational. Respond with ` +
	`JSON only, in the form ` +
	`{"sentences":[{"id":1,"text":"...","translation":"..."}]}. Do not add ` +
	`any other keys or commentary.`

// Generator implements shadow.ScriptGenerator on the OpenAI chat API.
// Retry and backoff are left to the SDK; the core treats any error as
// "no script".
type Generator struct {
	client oai.Client
	model  string
}

// NewGenerator constructs a script generator.
func NewGenerator(apiKey, model string, opts ...Option) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gen: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultChatModel
	}

	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}

	return &Generator{
		client: oai.NewClient(cfg.requestOptions(apiKey)...),
		model:  model,
	}, nil
}

// Generate implements shadow.ScriptGenerator.
func (g *Generator) Generate(ctx context.Context, req shadow.GenerateRequest) (*shadow.Script, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(scriptSystemPrompt),
			oai.UserMessage(buildPrompt(req)),
		},
		Temperature: param.NewOpt(0.8),
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shadow.ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices in response", shadow.ErrGenerationFailed)
	}

	script, err := parseScript(resp.Choices[0].Message.Content, req.Theme)
	if err != nil {
		return nil, err
	}
	log.Debug("script generated", "theme", req.Theme, "sentences", len(script.Sentences))
	return script, nil
}

// buildPrompt assembles the user message from the request.
func buildPrompt(req shadow.GenerateRequest) string {
	var b strings.Builder
	count := req.SentenceCount
	if count <= 0 {
		count = 5
	}
	fmt.Fprintf(&b, "Theme: %s\nSentence count: %d\n", req.Theme, count)

	if req.SearchContext != "" {
		fmt.Fprintf(&b, "\nGround the sentences in these search results:\n%s\n", req.SearchContext)
	}
	if len(req.ExcludedTopics) > 0 {
		b.WriteString("\nDo not repeat any of these sentences or their topics:\n")
		for _, t := range req.ExcludedTopics {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	return b.String()
}

// parseScript decodes the model's JSON reply into a Script. Code fences are
// tolerated; anything else malformed is a generation failure.
func parseScript(content, theme string) (*shadow.Script, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var payload struct {
		Sentences []shadow.Sentence `json:"sentences"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed script payload: %v", shadow.ErrGenerationFailed, err)
	}

	script := &shadow.Script{Theme: theme, Sentences: payload.Sentences}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return script, nil
}
