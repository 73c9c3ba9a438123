// Package server exposes the LINE webhook over HTTP. It verifies signatures,
// resolves the sender's identity binding, runs the dispatcher, and replies
// within the webhook window.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
	"github.com/Khinkawu/crms6it-sub002/agent/identity"
	linex "github.com/Khinkawu/crms6it-sub002/pkg/line"
)

const maxWebhookBodyBytes = 2 << 20

type Config struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

// TurnHandler runs one conversation turn; implemented by dispatch.Dispatcher.
type TurnHandler interface {
	HandleTurn(ctx context.Context, turn contractx.ConversationTurn, caller contractx.IdentityBinding) (contractx.OutboundReply, error)
}

type Server struct {
	line       *linex.Client
	dispatcher TurnHandler
	bindings   contractx.BindingStore
	router     chi.Router
	cfg        Config
	log        zerolog.Logger
}

func New(lineClient *linex.Client, dispatcher TurnHandler, bindings contractx.BindingStore, cfg Config) (*Server, error) {
	if lineClient == nil {
		return nil, errors.New("line client is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if bindings == nil {
		return nil, errors.New("binding store is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		line:       lineClient,
		dispatcher: dispatcher,
		bindings:   bindings,
		cfg:        cfg,
		log:        log.Logger,
	}
	s.router = s.buildRouter()
	return s, nil
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.cfg.Addr).Msg("webhook server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/webhook/line", s.handleWebhook)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	req, err := s.line.ParseWebhook(body, r.Header.Get(linex.SignatureHeader))
	if err != nil {
		if errors.Is(err, linex.ErrInvalidSignature) {
			s.log.Warn().Msg("webhook signature mismatch")
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	for _, ev := range req.Events {
		s.handleEvent(r.Context(), ev)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleEvent(ctx context.Context, ev linex.Event) {
	if ev.Type != "message" || ev.Message == nil {
		return
	}

	turn := contractx.ConversationTurn{
		UserID: ev.Source.UserID,
		At:     time.UnixMilli(ev.Timestamp),
	}
	switch ev.Message.Type {
	case "text":
		turn.Text = ev.Message.Text
	case "image":
		turn.ImageID = ev.Message.ID
	default:
		s.reply(ctx, ev.ReplyToken, contractx.OutboundReply{
			Kind: contractx.ReplyText,
			Body: "ตอนนี้รองรับเฉพาะข้อความและรูปภาพครับ",
		})
		return
	}

	binding, err := s.bindings.Load(ctx, turn.UserID)
	switch {
	case errors.Is(err, identity.ErrBindingNotFound):
		s.reply(ctx, ev.ReplyToken, s.handleUnbound(ctx, turn))
		return
	case err != nil:
		s.log.Error().Err(err).Str("user_id", turn.UserID).Msg("load binding failed")
		s.reply(ctx, ev.ReplyToken, contractx.OutboundReply{
			Kind: contractx.ReplyText,
			Body: "ขอโทษครับ ระบบขัดข้องชั่วคราว รบกวนลองใหม่อีกครั้งครับ",
		})
		return
	}

	reply, err := s.dispatcher.HandleTurn(ctx, turn, *binding)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", turn.UserID).Msg("dispatch failed")
		reply = contractx.OutboundReply{
			Kind: contractx.ReplyText,
			Body: "ขอโทษครับ ระบบขัดข้องชั่วคราว รบกวนลองใหม่อีกครั้งครับ",
		}
	}
	s.reply(ctx, ev.ReplyToken, reply)
}

// handleUnbound runs the registration flow for senders without a binding.
func (s *Server) handleUnbound(ctx context.Context, turn contractx.ConversationTurn) contractx.OutboundReply {
	email, ok := identity.ParseRegistration(turn.Text)
	if !ok {
		return contractx.OutboundReply{Kind: contractx.ReplyText, Body: identity.RegistrationPrompt}
	}

	binding := &contractx.IdentityBinding{
		UserID:      turn.UserID,
		Email:       email,
		DisplayName: displayNameFromEmail(email),
	}
	if err := s.bindings.Save(ctx, binding); err != nil {
		s.log.Error().Err(err).Str("user_id", turn.UserID).Msg("save binding failed")
		return contractx.OutboundReply{
			Kind: contractx.ReplyText,
			Body: "ลงทะเบียนไม่สำเร็จครับ รบกวนลองใหม่อีกครั้งครับ",
		}
	}

	s.log.Info().Str("user_id", turn.UserID).Msg("identity registered")
	return contractx.OutboundReply{
		Kind: contractx.ReplyText,
		Body: "ลงทะเบียนเรียบร้อยครับ พิมพ์สิ่งที่ต้องการได้เลย เช่น จองห้องประชุม แจ้งซ่อม หรือค้นหารูปกิจกรรม",
	}
}

func (s *Server) reply(ctx context.Context, replyToken string, reply contractx.OutboundReply) {
	if err := s.line.Reply(ctx, replyToken, linex.Messages(reply)); err != nil {
		s.log.Error().Err(err).Msg("line reply failed")
	}
}

func displayNameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
