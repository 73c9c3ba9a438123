package phrase

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

type fakeChatModel struct {
	responses []*schema.Message
	err       error
	idx       int
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
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

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func TestPhraseSuccess(t *testing.T) {
	t.Parallel()

	p, err := New(context.Background(), &fakeChatModel{
		responses: []*schema.Message{{Content: `{"message":"ต้องการจองห้องไหนครับ"}`}},
	}, "phrase prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	msg, err := p.Phrase(context.Background(), contractx.PhraseRequest{
		UserMessage: "ขอจองห้องประชุมพรุ่งนี้บ่ายสอง",
		Action:      "room.book",
		Missing:     []string{"roomId"},
	})
	if err != nil {
		t.Fatalf("Phrase() error = %v", err)
	}
	if msg != "ต้องการจองห้องไหนครับ" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestPhraseEmptyMessageRejected(t *testing.T) {
	t.Parallel()

	p, err := New(context.Background(), &fakeChatModel{
		responses: []*schema.Message{{Content: `{"message":"  "}`}},
	}, "phrase prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = p.Phrase(context.Background(), contractx.PhraseRequest{Action: "room.book"})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("Phrase() error = %v, want ErrSchemaViolation", err)
	}
}

func TestPhraseModelFailure(t *testing.T) {
	t.Parallel()

	p, err := New(context.Background(), &fakeChatModel{err: errors.New("upstream timeout")}, "phrase prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = p.Phrase(context.Background(), contractx.PhraseRequest{Action: "room.book"})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("Phrase() error = %v, want ErrModelInvoke", err)
	}
}
