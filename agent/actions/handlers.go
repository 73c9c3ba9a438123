package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

// handlers holds the default domain handlers. Arguments arrive validated;
// anything a handler still rejects is a business rule, reported through
// ActionResult, while store errors bubble up as transport failures.
type handlers struct {
	store Store
	now   func() time.Time
}

func (h *handlers) listRooms(ctx context.Context, _ map[string]any, _ contractx.IdentityBinding) (contractx.ActionResult, error) {
	rooms, err := h.store.Rooms(ctx)
	if err != nil {
		return contractx.ActionResult{}, err
	}
	return contractx.ActionResult{Success: true, Payload: rooms}, nil
}

func (h *handlers) checkAvailability(ctx context.Context, args map[string]any, _ contractx.IdentityBinding) (contractx.ActionResult, error) {
	roomID := strArg(args, "roomId")
	date := strArg(args, "date")
	start := strArg(args, "startTime")
	end := strArg(args, "endTime")

	if reason := checkSlotOrder(start, end); reason != "" {
		return contractx.ActionResult{Success: false, Reason: reason}, nil
	}

	room, err := h.store.RoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return contractx.ActionResult{Success: false, Reason: unknownRoomReason(roomID)}, nil
		}
		return contractx.ActionResult{}, err
	}

	conflicts, err := h.store.OverlappingBookings(ctx, room.ID, date, start, end)
	if err != nil {
		return contractx.ActionResult{}, err
	}

	return contractx.ActionResult{
		Success: true,
		Payload: contractx.RoomAvailability{
			Room:      room.Name,
			Date:      date,
			Start:     start,
			End:       end,
			Free:      len(conflicts) == 0,
			Conflicts: conflicts,
		},
	}, nil
}

func (h *handlers) bookRoom(ctx context.Context, args map[string]any, caller contractx.IdentityBinding) (contractx.ActionResult, error) {
	roomID := strArg(args, "roomId")
	date := strArg(args, "date")
	start := strArg(args, "startTime")
	end := strArg(args, "endTime")

	if reason := checkSlotOrder(start, end); reason != "" {
		return contractx.ActionResult{Success: false, Reason: reason}, nil
	}

	room, err := h.store.RoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return contractx.ActionResult{Success: false, Reason: unknownRoomReason(roomID)}, nil
		}
		return contractx.ActionResult{}, err
	}

	conflicts, err := h.store.OverlappingBookings(ctx, room.ID, date, start, end)
	if err != nil {
		return contractx.ActionResult{}, err
	}
	if len(conflicts) > 0 {
		c := conflicts[0]
		return contractx.ActionResult{
			Success: false,
			Reason:  fmt.Sprintf("ห้อง %s ถูกจองแล้วช่วง %s-%s โดย %s ครับ", room.Name, c.Start, c.End, c.BookedBy),
		}, nil
	}

	// Room carries the id into the store; CreateBooking rewrites it to the
	// display name for rendering.
	booking := &contractx.BookingInfo{
		Room:      room.ID,
		Date:      date,
		Start:     start,
		End:       end,
		Purpose:   strArg(args, "purpose"),
		BookedBy:  caller.Email,
		CreatedAt: h.now().UTC(),
	}
	if err := h.store.CreateBooking(ctx, booking); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return contractx.ActionResult{
				Success: false,
				Reason:  fmt.Sprintf("ห้อง %s เพิ่งถูกจองช่วง %s-%s ไปก่อนหน้านี้ครับ ลองเลือกเวลาอื่นดูนะครับ", room.Name, start, end),
			}, nil
		}
		return contractx.ActionResult{}, err
	}

	return contractx.ActionResult{Success: true, Payload: *booking, Hint: contractx.HintCard}, nil
}

func (h *handlers) listMyBookings(ctx context.Context, _ map[string]any, caller contractx.IdentityBinding) (contractx.ActionResult, error) {
	bookings, err := h.store.BookingsByEmail(ctx, caller.Email)
	if err != nil {
		return contractx.ActionResult{}, err
	}
	return contractx.ActionResult{Success: true, Payload: bookings}, nil
}

func (h *handlers) cancelBooking(ctx context.Context, args map[string]any, caller contractx.IdentityBinding) (contractx.ActionResult, error) {
	bookingID := strArg(args, "bookingId")
	err := h.store.CancelBooking(ctx, bookingID, caller.Email)
	switch {
	case errors.Is(err, ErrNotFound):
		return contractx.ActionResult{Success: false, Reason: fmt.Sprintf("ไม่พบรายการจอง %s ครับ", bookingID)}, nil
	case errors.Is(err, ErrNotOwner):
		return contractx.ActionResult{Success: false, Reason: "ยกเลิกได้เฉพาะรายการที่จองเองครับ"}, nil
	case err != nil:
		return contractx.ActionResult{}, err
	}
	return contractx.ActionResult{Success: true, Payload: fmt.Sprintf("ยกเลิกรายการจอง %s เรียบร้อยครับ", bookingID)}, nil
}

func (h *handlers) requestPhotographer(ctx context.Context, args map[string]any, caller contractx.IdentityBinding) (contractx.ActionResult, error) {
	date := strArg(args, "date")
	start := strArg(args, "startTime")
	end := strArg(args, "endTime")
	if end == "" {
		end = start
	}

	purpose := strArg(args, "event")
	if loc := strArg(args, "location"); loc != "" {
		purpose += " @ " + loc
	}

	conflicts, err := h.store.OverlappingBookings(ctx, photographerResource, date, start, end)
	if err != nil {
		return contractx.ActionResult{}, err
	}
	if len(conflicts) > 0 {
		c := conflicts[0]
		return contractx.ActionResult{
			Success: false,
			Reason:  fmt.Sprintf("ช่างภาพติดงาน %s ช่วง %s-%s ครับ", c.Purpose, c.Start, c.End),
		}, nil
	}

	booking := &contractx.BookingInfo{
		Room:      photographerResource,
		Date:      date,
		Start:     start,
		End:       end,
		Purpose:   purpose,
		BookedBy:  caller.Email,
		CreatedAt: h.now().UTC(),
	}
	if err := h.store.CreateBooking(ctx, booking); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return contractx.ActionResult{
				Success: false,
				Reason:  fmt.Sprintf("ช่างภาพเพิ่งรับงานช่วง %s-%s ไปก่อนหน้านี้ครับ", start, end),
			}, nil
		}
		return contractx.ActionResult{}, err
	}
	return contractx.ActionResult{Success: true, Payload: *booking, Hint: contractx.HintCard}, nil
}

func (h *handlers) createTicket(ctx context.Context, args map[string]any, caller contractx.IdentityBinding) (contractx.ActionResult, error) {
	ticket := &contractx.TicketInfo{
		Category: strings.ToLower(strArg(args, "category")),
		Detail:   strArg(args, "detail"),
		Location: strArg(args, "location"),
		Status:   "open",
		Reporter: caller.Email,
		OpenedAt: h.now().UTC(),
	}
	if err := h.store.CreateTicket(ctx, ticket); err != nil {
		return contractx.ActionResult{}, err
	}
	return contractx.ActionResult{Success: true, Payload: *ticket, Hint: contractx.HintCard}, nil
}

func (h *handlers) ticketStatus(ctx context.Context, args map[string]any, caller contractx.IdentityBinding) (contractx.ActionResult, error) {
	if ticketID := strArg(args, "ticketId"); ticketID != "" {
		ticket, err := h.store.TicketByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return contractx.ActionResult{Success: false, Reason: fmt.Sprintf("ไม่พบใบแจ้งซ่อม %s ครับ", ticketID)}, nil
			}
			return contractx.ActionResult{}, err
		}
		return contractx.ActionResult{Success: true, Payload: *ticket, Hint: contractx.HintCard}, nil
	}

	tickets, err := h.store.OpenTicketsByEmail(ctx, caller.Email)
	if err != nil {
		return contractx.ActionResult{}, err
	}
	// An empty list is a perfectly good answer, not an error.
	return contractx.ActionResult{Success: true, Payload: tickets, Hint: contractx.HintCard}, nil
}

func (h *handlers) searchGallery(ctx context.Context, args map[string]any, _ contractx.IdentityBinding) (contractx.ActionResult, error) {
	items, err := h.store.SearchGallery(ctx, strArg(args, "query"), strings.ToLower(strArg(args, "kind")))
	if err != nil {
		return contractx.ActionResult{}, err
	}
	return contractx.ActionResult{Success: true, Payload: items, Hint: contractx.HintCard}, nil
}

func (h *handlers) dailySummary(ctx context.Context, args map[string]any, _ contractx.IdentityBinding) (contractx.ActionResult, error) {
	date := strArg(args, "date")
	if date == "" {
		date = h.now().Format("2006-01-02")
	}

	// Bookings and tickets are independent lookups; fetch them concurrently
	// and join before rendering.
	var (
		bookings []contractx.BookingInfo
		tickets  []contractx.TicketInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bookings, err = h.store.BookingsByDate(gctx, date)
		return err
	})
	g.Go(func() error {
		var err error
		tickets, err = h.store.OpenTickets(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return contractx.ActionResult{}, err
	}

	return contractx.ActionResult{
		Success: true,
		Payload: contractx.DailySummary{Date: date, Bookings: bookings, OpenTickets: tickets},
	}, nil
}

func (h *handlers) answerFAQ(ctx context.Context, args map[string]any, _ contractx.IdentityBinding) (contractx.ActionResult, error) {
	question := strArg(args, "question")
	answers, err := h.store.SearchFAQ(ctx, question)
	if err != nil {
		return contractx.ActionResult{}, err
	}
	if len(answers) == 0 {
		return contractx.ActionResult{
			Success: false,
			Reason:  "ยังไม่มีคำตอบเรื่องนี้ในฐานความรู้ครับ ลองติดต่อห้องไอทีโดยตรงได้เลยครับ",
		}, nil
	}
	return contractx.ActionResult{Success: true, Payload: answers[0]}, nil
}

func (h *handlers) equipmentStatus(ctx context.Context, args map[string]any, _ contractx.IdentityBinding) (contractx.ActionResult, error) {
	name := strArg(args, "name")
	item, err := h.store.EquipmentByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return contractx.ActionResult{Success: false, Reason: fmt.Sprintf("ไม่พบครุภัณฑ์ชื่อ %q ครับ", name)}, nil
		}
		return contractx.ActionResult{}, err
	}
	return contractx.ActionResult{Success: true, Payload: *item}, nil
}

// photographerResource is the pseudo-room the photographer's schedule lives
// under, so coverage requests share the overlap check with room bookings.
const photographerResource = "photographer"

func strArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

func checkSlotOrder(start, end string) string {
	if start >= end {
		return "เวลาเริ่มต้องมาก่อนเวลาสิ้นสุดครับ"
	}
	return ""
}

func unknownRoomReason(roomID string) string {
	return fmt.Sprintf("ไม่พบห้อง %s ในระบบครับ ลองดูรายชื่อห้องก่อนนะครับ", roomID)
}
