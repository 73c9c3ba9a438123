package phrase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

// ModelPhraser implements contract.Phraser: it asks a small model to turn a
// validation outcome into a natural Thai clarifying question.
type ModelPhraser struct {
	runner compose.Runnable[map[string]any, phraserLLMOutput]
}

var _ contractx.Phraser = (*ModelPhraser)(nil)

type phraserLLMOutput struct {
	Message string `json:"message"`
}

func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*ModelPhraser, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	runner, err := compilePhraseGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile phrase graph: %v", contractx.ErrModelInvoke, err)
	}
	return &ModelPhraser{runner: runner}, nil
}

func (p *ModelPhraser) Phrase(ctx context.Context, req contractx.PhraseRequest) (string, error) {
	input, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: marshal phrase payload: %v", contractx.ErrValidation, err)
	}

	out, err := p.runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return "", fmt.Errorf("%w: phrase invoke: %v", contractx.ErrModelInvoke, err)
	}

	message := strings.TrimSpace(out.Message)
	if message == "" {
		return "", fmt.Errorf("%w: phrase message is empty", contractx.ErrSchemaViolation)
	}
	return message, nil
}

func compilePhraseGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, phraserLLMOutput], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	parser := schema.NewMessageJSONParser[phraserLLMOutput](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, phraserLLMOutput]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add phrase prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add phrase model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add phrase parser node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add phrase edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add phrase edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add phrase edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add phrase edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("phrase.model_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile phrase graph: %w", err)
	}
	return runner, nil
}
