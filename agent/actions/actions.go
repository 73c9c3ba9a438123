// Package actions defines the fixed action set of the school operations
// agent: descriptors with their argument schemas, and the default handlers
// backed by the shared store. Adding an action is one descriptor plus one
// handler registration here.
package actions

import (
	"fmt"
	"time"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
	registryx "github.com/Khinkawu/crms6it-sub002/agent/registry"
)

// RepairCategories are the valid ticket categories, mirrored in the
// extractor prompt.
var RepairCategories = []string{"computer", "network", "projector", "printer", "other"}

// RegisterAll registers every action against the registry. Called once at
// startup; a duplicate name is a wiring bug and surfaces as an error.
func RegisterAll(reg *registryx.Registry, st Store, now func() time.Time) error {
	if reg == nil {
		return fmt.Errorf("%w: registry is required", contractx.ErrValidation)
	}
	if st == nil {
		return fmt.Errorf("%w: store is required", contractx.ErrValidation)
	}
	if now == nil {
		now = time.Now
	}

	h := &handlers{store: st, now: now}

	regs := []struct {
		desc    contractx.ActionDescriptor
		handler contractx.Handler
	}{
		{
			desc: contractx.ActionDescriptor{
				Name: "room.list",
				Desc: "List every bookable room with its id and capacity.",
			},
			handler: h.listRooms,
		},
		{
			desc: contractx.ActionDescriptor{
				Name: "room.check_availability",
				Desc: "Check whether a room is free in a given slot.",
				Args: []contractx.ArgSpec{
					{Name: "roomId", Type: contractx.ArgString, Desc: "Room id, e.g. meeting-2", Required: true},
					{Name: "date", Type: contractx.ArgDate, Desc: "Requested date", Required: true},
					{Name: "startTime", Type: contractx.ArgTime, Desc: "Slot start", Required: true},
					{Name: "endTime", Type: contractx.ArgTime, Desc: "Slot end", Required: true},
				},
			},
			handler: h.checkAvailability,
		},
		{
			desc: contractx.ActionDescriptor{
				Name: "room.book",
				Desc: "Book a room for the caller. Rejected when the slot overlaps an existing booking.",
				Args: []contractx.ArgSpec{
					{Name: "roomId", Type: contractx.ArgString, Desc: "Room id, e.g. meeting-2", Required: true},
					{Name: "date", Type: contractx.ArgDate, Desc: "Booking date", Required: true},
					{Name: "startTime", Type: contractx.ArgTime, Desc: "Start of the booking", Required: true},
					{Name: "endTime", Type: contractx.ArgTime, Desc: "End of the booking", Required: true},
					{Name: "purpose", Type: contractx.ArgString, Desc: "What the room is for"},
				},
				Hint: contractx.HintCard,
			},
			handler: h.bookRoom,
		},
		{
			desc: contractx.ActionDescriptor{
				Name: "booking.list_mine",
				Desc: "List the caller's upcoming room bookings.",
			},
			handler: h.listMyBookings,
		},
		{
			desc: contractx.ActionDescriptor{
				Name: "booking.cancel",
				Desc: "Cancel one of the caller's bookings by booking id.",
				Args: []contractx.ArgSpec{
					{Name: "bookingId", Type: contractx.ArgString, Desc: "Booking id from the confirmation", Required: true},
				},
			},
			handler: h.cancelBooking,
		},
		{
			desc: contractx.ActionDescriptor{
				Name: "photographer.request",
				Desc: "Request the school photographer for an event.",
				Args: []contractx.ArgSpec{
					{Name: "date", Type: contractx.ArgDate, Desc: "Event date", Required: true},
					{Name: "startTime", Type: contractx.ArgTime, Desc: "When coverage starts", Required: true},
					{Name: "endTime", Type: contractx.ArgTime, Desc: "When coverage ends"},
					{Name: "event", Type: contractx.ArgString, Desc: "Event name", Required: true},
					{Name: "location", Type: contractx.ArgString, Desc: "Where the event happens"},
				},
				Hint: contractx.HintCard,
			},
			handler: h.requestPhotographer,
		},
		{
			desc: contractx.ActionDescriptor{
				Name: "ticket.create",
				Desc: "Open an IT repair ticket for the caller.",
				Args: []contractx.ArgSpec{
					{Name: "category", Type: contractx.ArgString, Desc: "Kind of problem", Required: true, Enum: RepairCategories},
					{Name: "detail", Type: contractx.ArgString, Desc: "What is broken and how", Required: true},
					{Name: "location", Type: contractx.ArgString, Desc: "Room or building"},
				},
				Hint: contractx.HintCard,
			},
			handler: h.createTicket,
		},
		{
			desc: contractx.ActionDescriptor{
				Name: "ticket.status",
				Desc: "Look up repair tickets: one by id, or all of the caller's open tickets when no id is given.",
				Args: []contractx.ArgSpec{
					{Name: "ticketId", Type: contractx.ArgString, Desc: "Ticket id, omit to list open tickets"},
				},
				Hint: contractx.HintCard,
			},
			handler: h.ticketStatus,
		},
		{
			desc: contractx.ActionDescriptor{
				Name: "gallery.search",
				Desc: "Search the school photo and video gallery.",
				Args: []contractx.ArgSpec{
					{Name: "query", Type: contractx.ArgString, Desc: "What to look for", Required: true},
					{Name: "kind", Type: contractx.ArgString, Desc: "Limit to photos or videos", Enum: []string{"photo", "video"}},
				},
				Hint: contractx.HintCard,
			},
			handler: h.searchGallery,
		},
		{
			desc: contractx.ActionDescriptor{
				Name: "summary.daily",
				Desc: "Summarize one day's bookings and open repair tickets.",
				Args: []contractx.ArgSpec{
					{Name: "date", Type: contractx.ArgDate, Desc: "Day to summarize, omit for today"},
				},
			},
			handler: h.dailySummary,
		},
		{
			desc: contractx.ActionDescriptor{
				Name: "faq.answer",
				Desc: "Answer a question from the school IT knowledge base.",
				Args: []contractx.ArgSpec{
					{Name: "question", Type: contractx.ArgString, Desc: "The question as asked", Required: true},
				},
			},
			handler: h.answerFAQ,
		},
		{
			desc: contractx.ActionDescriptor{
				Name: "equipment.status",
				Desc: "Look up the loan or repair status of an inventory item.",
				Args: []contractx.ArgSpec{
					{Name: "name", Type: contractx.ArgString, Desc: "Equipment name or tag", Required: true},
				},
			},
			handler: h.equipmentStatus,
		},
	}

	for _, r := range regs {
		if err := reg.Register(r.desc, r.handler); err != nil {
			return fmt.Errorf("register %s: %w", r.desc.Name, err)
		}
	}
	return nil
}
