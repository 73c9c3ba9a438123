package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
	registryx "github.com/Khinkawu/crms6it-sub002/agent/registry"
)

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	idx       int
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func testRegistry(t *testing.T) *registryx.Registry {
	t.Helper()

	reg := registryx.New()
	desc := contractx.ActionDescriptor{
		Name: "room.book",
		Desc: "Book a meeting room.",
		Args: []contractx.ArgSpec{
			{Name: "roomId", Type: contractx.ArgString, Required: true},
			{Name: "date", Type: contractx.ArgDate, Required: true},
			{Name: "startTime", Type: contractx.ArgTime, Required: true},
			{Name: "endTime", Type: contractx.ArgTime, Required: true},
		},
	}
	handler := func(ctx context.Context, args map[string]any, caller contractx.IdentityBinding) (contractx.ActionResult, error) {
		return contractx.ActionResult{Success: true}, nil
	}
	if err := reg.Register(desc, handler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return reg
}

func newTestExtractor(t *testing.T, fake *fakeToolCallingModel) *ModelExtractor {
	t.Helper()

	e, err := New(
		context.Background(),
		fake,
		testRegistry(t),
		"school ops assistant\n"+actionsMarker,
		WithNow(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestExtractPlainReplyWhenNoToolCall(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, &fakeToolCallingModel{
		responses: []*schema.Message{{Content: "สวัสดีครับ มีอะไรให้ช่วยไหมครับ"}},
	})

	out, err := e.Extract(context.Background(), contractx.ConversationTurn{UserID: "U1", Text: "สวัสดี"}, contractx.IdentityBinding{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.Invocation != nil {
		t.Fatalf("expected no invocation, got %+v", out.Invocation)
	}
	if out.Reply == "" {
		t.Fatal("expected conversational reply")
	}
}

func TestExtractToolCallResolvesRelativeDateTime(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, &fakeToolCallingModel{
		responses: []*schema.Message{{
			ToolCalls: []schema.ToolCall{{
				Function: schema.FunctionCall{
					Name:      "room.book",
					Arguments: `{"roomId":"meeting-2","date":"พรุ่งนี้","startTime":"บ่ายสอง","endTime":"บ่ายสาม"}`,
				},
			}},
		}},
	})

	out, err := e.Extract(context.Background(), contractx.ConversationTurn{UserID: "U1", Text: "ขอจองห้องประชุมเล็กพรุ่งนี้บ่ายสองถึงบ่ายสาม"}, contractx.IdentityBinding{Email: "krusomchai@school.ac.th"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.Invocation == nil {
		t.Fatal("expected an invocation")
	}
	if out.Invocation.Action != "room.book" {
		t.Fatalf("unexpected action: %s", out.Invocation.Action)
	}
	if got := out.Invocation.Args["date"]; got != "2026-09-01" {
		t.Fatalf("date = %v, want 2026-09-01", got)
	}
	if got := out.Invocation.Args["startTime"]; got != "14:00" {
		t.Fatalf("startTime = %v, want 14:00", got)
	}
	if got := out.Invocation.Args["endTime"]; got != "15:00" {
		t.Fatalf("endTime = %v, want 15:00", got)
	}
}

func TestExtractUnknownActionFailsClosed(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, &fakeToolCallingModel{
		responses: []*schema.Message{{
			ToolCalls: []schema.ToolCall{{
				Function: schema.FunctionCall{Name: "room.demolish", Arguments: `{}`},
			}},
		}},
	})

	_, err := e.Extract(context.Background(), contractx.ConversationTurn{UserID: "U1", Text: "ทุบห้องทิ้ง"}, contractx.IdentityBinding{})
	if !errors.Is(err, contractx.ErrUnknownAction) {
		t.Fatalf("Extract() error = %v, want ErrUnknownAction", err)
	}
}

func TestExtractMalformedToolArgs(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, &fakeToolCallingModel{
		responses: []*schema.Message{{
			ToolCalls: []schema.ToolCall{{
				Function: schema.FunctionCall{Name: "room.book", Arguments: `{"roomId":`},
			}},
		}},
	})

	_, err := e.Extract(context.Background(), contractx.ConversationTurn{UserID: "U1", Text: "จองห้อง"}, contractx.IdentityBinding{})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("Extract() error = %v, want ErrSchemaViolation", err)
	}
}

func TestExtractModelFailure(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, &fakeToolCallingModel{err: errors.New("upstream 503")})

	_, err := e.Extract(context.Background(), contractx.ConversationTurn{UserID: "U1", Text: "จองห้อง"}, contractx.IdentityBinding{})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("Extract() error = %v, want ErrModelInvoke", err)
	}
}

func TestExtractEmptyMessageRejected(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, &fakeToolCallingModel{})

	_, err := e.Extract(context.Background(), contractx.ConversationTurn{UserID: "U1", Text: "   "}, contractx.IdentityBinding{})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Extract() error = %v, want ErrValidation", err)
	}
}

func TestExtractPartialInvocationForwarded(t *testing.T) {
	t.Parallel()

	// No room given: the extractor forwards the incomplete invocation so the
	// validator can report exactly which slot is missing.
	e := newTestExtractor(t, &fakeToolCallingModel{
		responses: []*schema.Message{{
			ToolCalls: []schema.ToolCall{{
				Function: schema.FunctionCall{
					Name:      "room.book",
					Arguments: `{"date":"พรุ่งนี้","startTime":"บ่ายสอง","endTime":"บ่ายสี่"}`,
				},
			}},
		}},
	})

	out, err := e.Extract(context.Background(), contractx.ConversationTurn{UserID: "U1", Text: "ขอจองห้องประชุมพรุ่งนี้บ่ายสอง"}, contractx.IdentityBinding{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.Invocation == nil {
		t.Fatal("expected an invocation")
	}
	if _, ok := out.Invocation.Args["roomId"]; ok {
		t.Fatal("roomId should be absent")
	}
}
