package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
	registryx "github.com/Khinkawu/crms6it-sub002/agent/registry"
)

const actionsMarker = "<<ACTIONS>>"

// ModelExtractor implements contract.Extractor on top of a function-calling
// chat model. The action schemas are bound as tools; the model either calls
// one of them or replies conversationally.
type ModelExtractor struct {
	runner compose.Runnable[map[string]any, *schema.Message]
	reg    *registryx.Registry
	now    func() time.Time
	loc    *time.Location
}

var _ contractx.Extractor = (*ModelExtractor)(nil)

type Option func(*ModelExtractor)

func WithNow(now func() time.Time) Option {
	return func(e *ModelExtractor) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(e *ModelExtractor) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func New(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	reg *registryx.Registry,
	systemPrompt string,
	opts ...Option,
) (*ModelExtractor, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: action registry is required", contractx.ErrValidation)
	}

	descs := reg.Descriptors()
	if len(descs) == 0 {
		return nil, fmt.Errorf("%w: registry has no actions", contractx.ErrValidation)
	}

	toolModel, err := chatModel.WithTools(toolInfos(descs))
	if err != nil {
		return nil, fmt.Errorf("%w: bind action tools: %v", contractx.ErrModelInvoke, err)
	}

	prompt := strings.ReplaceAll(systemPrompt, actionsMarker, renderActionList(descs))
	runner, err := compileExtractGraph(ctx, toolModel, prompt)
	if err != nil {
		return nil, err
	}

	e := &ModelExtractor{
		runner: runner,
		reg:    reg,
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Extract sends one turn to the model and parses the outcome. Unknown action
// names fail closed: the caller gets an error, never an invocation that the
// registry cannot validate against a descriptor.
func (e *ModelExtractor) Extract(
	ctx context.Context,
	turn contractx.ConversationTurn,
	caller contractx.IdentityBinding,
) (contractx.Extraction, error) {
	if strings.TrimSpace(turn.Text) == "" && strings.TrimSpace(turn.ImageID) == "" {
		return contractx.Extraction{}, fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}

	now := e.now().In(e.loc)
	payload := map[string]any{
		"user_message": turn.Text,
		"image_id":     turn.ImageID,
		"caller": map[string]any{
			"name":  caller.DisplayName,
			"email": caller.Email,
		},
		"now": now.Format("2006-01-02 15:04 Monday"),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.Extraction{}, fmt.Errorf("%w: marshal extract payload: %v", contractx.ErrValidation, err)
	}

	msg, err := e.runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return contractx.Extraction{}, fmt.Errorf("%w: extract invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return contractx.Extraction{}, fmt.Errorf("%w: empty extract response", contractx.ErrSchemaViolation)
	}

	if len(msg.ToolCalls) == 0 {
		reply := strings.TrimSpace(msg.Content)
		if reply == "" {
			return contractx.Extraction{}, fmt.Errorf("%w: extract produced neither reply nor action", contractx.ErrSchemaViolation)
		}
		return contractx.Extraction{Reply: reply}, nil
	}

	// The dispatcher executes zero or one action per turn; extra calls are
	// dropped deliberately.
	call := msg.ToolCalls[0]
	name := strings.TrimSpace(call.Function.Name)
	desc, _, ok := e.reg.Lookup(name)
	if !ok {
		return contractx.Extraction{}, fmt.Errorf("%w: model called %q", contractx.ErrUnknownAction, name)
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return contractx.Extraction{}, fmt.Errorf("%w: invalid args for action=%s: %v", contractx.ErrSchemaViolation, name, err)
		}
	}

	resolveRelativeArgs(desc, args, now)

	return contractx.Extraction{
		Invocation: &contractx.ActionInvocation{Action: desc.Name, Args: args},
	}, nil
}

// resolveRelativeArgs rewrites relative Thai date/time phrases in place.
// Unresolvable values are left as-is so validation can name the slot.
func resolveRelativeArgs(desc contractx.ActionDescriptor, args map[string]any, now time.Time) {
	for _, spec := range desc.Args {
		raw, ok := args[spec.Name].(string)
		if !ok {
			continue
		}
		switch spec.Type {
		case contractx.ArgDate:
			if v, ok := ResolveDate(raw, now); ok {
				args[spec.Name] = v
			}
		case contractx.ArgTime:
			if v, ok := ResolveTime(raw, now); ok {
				args[spec.Name] = v
			}
		}
	}
}

func compileExtractGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add extract prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add extract model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add extract edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add extract edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add extract edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("extract.model_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile extract graph: %w", err)
	}
	return runner, nil
}
