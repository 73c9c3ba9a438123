package contract

import "context"

// Handler performs one action's side effect against the shared store.
// Arguments are already validated; handlers may assume required slots are
// present and well-typed. Returned errors are transport failures only;
// business rejections belong in the ActionResult.
type Handler func(ctx context.Context, args map[string]any, caller IdentityBinding) (ActionResult, error)

// Extraction is the outcome of one extractor call: either a best-effort
// invocation, or a conversational reply with no action.
type Extraction struct {
	Invocation *ActionInvocation
	Reply      string
}

// Extractor turns one user message into an Extraction. Implementations wrap
// the hosted generation model so the dispatcher is testable without one.
type Extractor interface {
	Extract(ctx context.Context, turn ConversationTurn, caller IdentityBinding) (Extraction, error)
}

// PhraseRequest asks for a natural-language clarification naming the slots
// that are missing or malformed.
type PhraseRequest struct {
	UserMessage string   `json:"user_message"`
	Action      string   `json:"action"`
	Missing     []string `json:"missing,omitempty"`
	Invalid     []string `json:"invalid,omitempty"`
}

// Phraser produces the clarifying question for an invalid invocation.
// Optional; the dispatcher falls back to a templated message on failure.
type Phraser interface {
	Phrase(ctx context.Context, req PhraseRequest) (string, error)
}

// BindingStore resolves platform user ids to internal accounts.
type BindingStore interface {
	Load(ctx context.Context, userID string) (*IdentityBinding, error)
	Save(ctx context.Context, b *IdentityBinding) error
	Delete(ctx context.Context, userID string) error
}
