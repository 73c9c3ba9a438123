package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
	rankx "github.com/Khinkawu/crms6it-sub002/agent/rank"
	registryx "github.com/Khinkawu/crms6it-sub002/agent/registry"
	renderx "github.com/Khinkawu/crms6it-sub002/agent/render"
)

// Phase names the dispatcher's position inside one turn. It exists for
// logging; routing decisions are made on the state itself.
type Phase string

const (
	PhaseExtracting Phase = "extracting"
	PhaseNoAction   Phase = "no_action"
	PhaseValidating Phase = "validating"
	PhaseClarifying Phase = "clarifying"
	PhaseExecuting  Phase = "executing"
	PhaseRendering  Phase = "rendering"
	PhaseDone       Phase = "done"
)

// turnInput is what one webhook event hands to the graph.
type turnInput struct {
	Turn   contractx.ConversationTurn
	Caller contractx.IdentityBinding
}

// turnState threads through the graph. Nodes record failures here instead of
// returning them, so every turn reaches finalize with something to say.
type turnState struct {
	turn   contractx.ConversationTurn
	caller contractx.IdentityBinding

	phase      Phase
	extraction contractx.Extraction
	verr       *registryx.ValidationError
	reply      contractx.OutboundReply
	replySet   bool
}

func (s *turnState) setReply(r contractx.OutboundReply) {
	s.reply = r
	s.replySet = true
}

func (d *Dispatcher) runExtract(ctx context.Context, in turnInput) (*turnState, error) {
	st := &turnState{turn: in.Turn, caller: in.Caller, phase: PhaseExtracting}

	ectx, cancel := context.WithTimeout(ctx, d.cfg.ExtractTimeout)
	defer cancel()

	ext, err := d.extractor.Extract(ectx, in.Turn, in.Caller)
	if err != nil {
		d.log.Error().Err(err).Str("user_id", in.Turn.UserID).Msg("extraction failed")
		st.phase = PhaseClarifying
		st.setReply(renderx.Text(extractFailureText(err)))
		return st, nil
	}

	st.extraction = ext
	return st, nil
}

func extractFailureText(err error) string {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return "รบกวนพิมพ์ข้อความที่ต้องการให้ช่วยก่อนนะครับ"
	case errors.Is(err, contractx.ErrUnknownAction):
		return "เรื่องนี้ผมยังทำให้ไม่ได้ครับ ลองถามเรื่องจองห้อง แจ้งซ่อม ค้นหารูปกิจกรรม หรือขอช่างภาพได้ครับ"
	default:
		return "ขอโทษครับ ระบบขัดข้องชั่วคราว รบกวนลองใหม่อีกครั้งครับ"
	}
}

// routeAfterExtract sends turns with no invocation straight to respond;
// everything else goes through validation.
func routeAfterExtract(_ context.Context, st *turnState) (string, error) {
	if st == nil {
		return "", fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}
	if st.replySet || st.extraction.Invocation == nil {
		return nodeRespond, nil
	}
	return nodeValidate, nil
}

func (d *Dispatcher) runRespond(_ context.Context, st *turnState) (*turnState, error) {
	if st.replySet {
		st.phase = PhaseRendering
		return st, nil
	}

	st.phase = PhaseNoAction
	reply := strings.TrimSpace(st.extraction.Reply)
	if reply == "" {
		reply = "มีอะไรให้ช่วยไหมครับ"
	}
	st.setReply(renderx.Text(reply))
	st.phase = PhaseRendering
	return st, nil
}

func (d *Dispatcher) runValidate(_ context.Context, st *turnState) (*turnState, error) {
	st.phase = PhaseValidating

	err := d.registry.Validate(*st.extraction.Invocation)
	if err == nil {
		return st, nil
	}

	var verr *registryx.ValidationError
	if errors.As(err, &verr) {
		st.verr = verr
		return st, nil
	}

	// Unknown action names normally fail inside the extractor; reaching here
	// means the registry changed under us. Clarify rather than crash.
	d.log.Warn().Err(err).Str("action", st.extraction.Invocation.Action).Msg("invocation rejected")
	st.setReply(renderx.Text(extractFailureText(contractx.ErrUnknownAction)))
	return st, nil
}

func routeAfterValidate(_ context.Context, st *turnState) (string, error) {
	if st == nil {
		return "", fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}
	if st.replySet || st.verr != nil {
		return nodeClarify, nil
	}
	return nodeExecute, nil
}

func (d *Dispatcher) runClarify(ctx context.Context, st *turnState) (*turnState, error) {
	st.phase = PhaseClarifying
	if st.replySet {
		return st, nil
	}

	req := contractx.PhraseRequest{
		UserMessage: st.turn.Text,
		Action:      st.verr.Action,
		Missing:     st.verr.Missing,
		Invalid:     st.verr.InvalidNames(),
	}

	if d.phraser != nil {
		pctx, cancel := context.WithTimeout(ctx, d.cfg.PhraseTimeout)
		question, err := d.phraser.Phrase(pctx, req)
		cancel()
		if err == nil && strings.TrimSpace(question) != "" {
			st.setReply(renderx.Text(question))
			return st, nil
		}
		if err != nil {
			d.log.Warn().Err(err).Str("action", req.Action).Msg("phraser failed, using templated clarification")
		}
	}

	st.setReply(renderx.Text(templatedClarification(req)))
	return st, nil
}

// templatedClarification is the deterministic fallback when no phraser is
// wired or the model call fails. It still names every offending slot.
func templatedClarification(req contractx.PhraseRequest) string {
	var b strings.Builder
	b.WriteString("ขอข้อมูลเพิ่มอีกนิดครับ")
	if len(req.Missing) > 0 {
		fmt.Fprintf(&b, "\nยังขาด: %s", strings.Join(req.Missing, ", "))
	}
	if len(req.Invalid) > 0 {
		fmt.Fprintf(&b, "\nไม่ถูกต้อง: %s", strings.Join(req.Invalid, ", "))
	}
	return b.String()
}

func (d *Dispatcher) runExecute(ctx context.Context, st *turnState) (*turnState, error) {
	st.phase = PhaseExecuting
	inv := st.extraction.Invocation

	desc, handler, ok := d.registry.Lookup(inv.Action)
	if !ok {
		st.setReply(renderx.Text(extractFailureText(contractx.ErrUnknownAction)))
		return st, nil
	}

	d.log.Info().
		Str("action", inv.Action).
		Strs("args", argNames(inv.Args)).
		Str("user_id", st.turn.UserID).
		Msg("executing action")

	hctx, cancel := context.WithTimeout(ctx, d.cfg.HandleTimeout)
	defer cancel()

	res, err := handler(hctx, inv.Args, st.caller)
	if err != nil {
		d.log.Error().Err(err).Str("action", inv.Action).Msg("handler failed")
		st.setReply(renderx.Text("ขอโทษครับ ระบบไม่สามารถดำเนินการได้ชั่วคราว รบกวนลองใหม่อีกครั้งครับ"))
		return st, nil
	}

	switch items := res.Payload.(type) {
	case []contractx.GalleryItem:
		query, _ := inv.Args["query"].(string)
		res.Payload = rankx.Gallery(items, query)
	case []contractx.TicketInfo:
		// Ticket lookups carry no query slot; the raw message is the query.
		res.Payload = rankx.Tickets(items, st.turn.Text)
	}
	if res.Hint == "" {
		res.Hint = desc.Hint
	}

	st.phase = PhaseRendering
	st.setReply(renderx.FromResult(res))
	return st, nil
}

func (d *Dispatcher) runFinalize(_ context.Context, st *turnState) (contractx.OutboundReply, error) {
	if st == nil {
		return contractx.OutboundReply{}, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}

	reply := st.reply
	if strings.TrimSpace(reply.Body) == "" {
		reply = renderx.Text("ขอโทษครับ ระบบขัดข้องชั่วคราว รบกวนลองใหม่อีกครั้งครับ")
	}
	st.phase = PhaseDone

	d.log.Debug().
		Str("user_id", st.turn.UserID).
		Str("kind", string(reply.Kind)).
		Msg("turn finished")
	return reply, nil
}

// argNames keeps argument values out of the logs; Thai free text can carry
// names and room details we do not want in log storage.
func argNames(args map[string]any) []string {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
