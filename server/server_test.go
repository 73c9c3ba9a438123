package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
	"github.com/Khinkawu/crms6it-sub002/agent/identity"
	linex "github.com/Khinkawu/crms6it-sub002/pkg/line"
)

const channelSecret = "test-secret"

type fakeDispatcher struct {
	reply contractx.OutboundReply
	err   error
	calls int
	last  contractx.ConversationTurn
}

func (f *fakeDispatcher) HandleTurn(ctx context.Context, turn contractx.ConversationTurn, caller contractx.IdentityBinding) (contractx.OutboundReply, error) {
	f.calls++
	f.last = turn
	if f.err != nil {
		return contractx.OutboundReply{}, f.err
	}
	return f.reply, nil
}

type fakeBindings struct {
	bindings map[string]*contractx.IdentityBinding
	saved    []*contractx.IdentityBinding
}

func (f *fakeBindings) Load(ctx context.Context, userID string) (*contractx.IdentityBinding, error) {
	if b, ok := f.bindings[userID]; ok {
		return b, nil
	}
	return nil, identity.ErrBindingNotFound
}

func (f *fakeBindings) Save(ctx context.Context, b *contractx.IdentityBinding) error {
	if f.bindings == nil {
		f.bindings = map[string]*contractx.IdentityBinding{}
	}
	f.bindings[b.UserID] = b
	f.saved = append(f.saved, b)
	return nil
}

func (f *fakeBindings) Delete(ctx context.Context, userID string) error {
	delete(f.bindings, userID)
	return nil
}

type lineCapture struct {
	payloads []map[string]any
}

func newLineAPI(t *testing.T, capture *lineCapture) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode line payload: %v", err)
		}
		capture.payloads = append(capture.payloads, payload)
		fmt.Fprint(w, `{}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestServer(t *testing.T, dispatcher TurnHandler, bindings contractx.BindingStore, capture *lineCapture) *Server {
	t.Helper()

	api := newLineAPI(t, capture)
	client, err := linex.NewClient(linex.Config{
		ChannelSecret: channelSecret,
		ChannelToken:  "token",
		APIEndpoint:   api.URL,
	})
	if err != nil {
		t.Fatalf("line.NewClient() error = %v", err)
	}

	s, err := New(client, dispatcher, bindings, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook/line", strings.NewReader(body))
	req.Header.Set(linex.SignatureHeader, sign([]byte(body)))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func textEventBody(userID, text string) string {
	return fmt.Sprintf(`{
		"events": [{
			"type": "message",
			"replyToken": "rt-1",
			"timestamp": 1756600000000,
			"source": {"type": "user", "userId": %q},
			"message": {"id": "m1", "type": "text", "text": %q}
		}]
	}`, userID, text)
}

func replyText(t *testing.T, payload map[string]any) string {
	t.Helper()
	msgs, ok := payload["messages"].([]any)
	if !ok || len(msgs) == 0 {
		t.Fatalf("no messages in payload: %#v", payload)
	}
	first, ok := msgs[0].(map[string]any)
	if !ok {
		t.Fatalf("unexpected message shape: %#v", msgs[0])
	}
	text, _ := first["text"].(string)
	return text
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()

	capture := &lineCapture{}
	s := newTestServer(t, &fakeDispatcher{}, &fakeBindings{}, capture)

	req := httptest.NewRequest(http.MethodPost, "/webhook/line", strings.NewReader(`{"events":[]}`))
	req.Header.Set(linex.SignatureHeader, "forged")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if len(capture.payloads) != 0 {
		t.Fatal("no reply should be sent for a forged webhook")
	}
}

func TestWebhookDispatchesBoundUser(t *testing.T) {
	t.Parallel()

	capture := &lineCapture{}
	dispatcher := &fakeDispatcher{
		reply: contractx.OutboundReply{Kind: contractx.ReplyText, Body: "จองห้องเรียบร้อยครับ"},
	}
	bindings := &fakeBindings{bindings: map[string]*contractx.IdentityBinding{
		"U123": {UserID: "U123", Email: "somchai@school.ac.th", DisplayName: "ครูสมชาย"},
	}}
	s := newTestServer(t, dispatcher, bindings, capture)

	rec := postWebhook(t, s, textEventBody("U123", "จองห้องประชุมพรุ่งนี้บ่ายสอง"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if dispatcher.calls != 1 {
		t.Fatalf("dispatcher calls = %d, want 1", dispatcher.calls)
	}
	if dispatcher.last.Text != "จองห้องประชุมพรุ่งนี้บ่ายสอง" {
		t.Fatalf("unexpected turn: %+v", dispatcher.last)
	}
	if len(capture.payloads) != 1 {
		t.Fatalf("expected one reply, got %d", len(capture.payloads))
	}
	if got := replyText(t, capture.payloads[0]); got != "จองห้องเรียบร้อยครับ" {
		t.Fatalf("reply text = %q", got)
	}
}

func TestWebhookUnboundUserGetsRegistrationPrompt(t *testing.T) {
	t.Parallel()

	capture := &lineCapture{}
	dispatcher := &fakeDispatcher{}
	s := newTestServer(t, dispatcher, &fakeBindings{}, capture)

	rec := postWebhook(t, s, textEventBody("U999", "จองห้องหน่อย"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if dispatcher.calls != 0 {
		t.Fatal("dispatcher must not run for unbound senders")
	}
	if got := replyText(t, capture.payloads[0]); !strings.Contains(got, "ลงทะเบียน") {
		t.Fatalf("expected registration prompt, got %q", got)
	}
}

func TestWebhookRegistrationSavesBinding(t *testing.T) {
	t.Parallel()

	capture := &lineCapture{}
	bindings := &fakeBindings{}
	s := newTestServer(t, &fakeDispatcher{}, bindings, capture)

	rec := postWebhook(t, s, textEventBody("U999", "ลงทะเบียน somchai@school.ac.th"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(bindings.saved) != 1 {
		t.Fatalf("expected one saved binding, got %d", len(bindings.saved))
	}
	saved := bindings.saved[0]
	if saved.UserID != "U999" || saved.Email != "somchai@school.ac.th" {
		t.Fatalf("unexpected binding: %+v", saved)
	}
	if got := replyText(t, capture.payloads[0]); !strings.Contains(got, "เรียบร้อย") {
		t.Fatalf("expected confirmation, got %q", got)
	}
}

func TestWebhookDispatchErrorStillReplies(t *testing.T) {
	t.Parallel()

	capture := &lineCapture{}
	dispatcher := &fakeDispatcher{err: fmt.Errorf("graph exploded")}
	bindings := &fakeBindings{bindings: map[string]*contractx.IdentityBinding{
		"U123": {UserID: "U123", Email: "somchai@school.ac.th"},
	}}
	s := newTestServer(t, dispatcher, bindings, capture)

	rec := postWebhook(t, s, textEventBody("U123", "สวัสดี"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(capture.payloads) != 1 {
		t.Fatalf("expected one reply, got %d", len(capture.payloads))
	}
	if got := replyText(t, capture.payloads[0]); !strings.Contains(got, "ขอโทษ") {
		t.Fatalf("expected apology, got %q", got)
	}
}

func TestWebhookImageMessageBecomesImageTurn(t *testing.T) {
	t.Parallel()

	capture := &lineCapture{}
	dispatcher := &fakeDispatcher{
		reply: contractx.OutboundReply{Kind: contractx.ReplyText, Body: "รับรูปแล้วครับ"},
	}
	bindings := &fakeBindings{bindings: map[string]*contractx.IdentityBinding{
		"U123": {UserID: "U123", Email: "somchai@school.ac.th"},
	}}
	s := newTestServer(t, dispatcher, bindings, capture)

	body := `{
		"events": [{
			"type": "message",
			"replyToken": "rt-2",
			"timestamp": 1756600000000,
			"source": {"type": "user", "userId": "U123"},
			"message": {"id": "img-77", "type": "image"}
		}]
	}`
	rec := postWebhook(t, s, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if dispatcher.last.ImageID != "img-77" || dispatcher.last.Text != "" {
		t.Fatalf("unexpected turn: %+v", dispatcher.last)
	}
}
