package actions

import (
	"context"
	"errors"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

// ErrNotFound is returned by Store implementations when a lookup target does
// not exist. Handlers translate it into a domain rejection, never a system
// error.
var ErrNotFound = errors.New("record not found")

// ErrNotOwner is returned when a caller tries to cancel a booking that
// belongs to someone else.
var ErrNotOwner = errors.New("booking belongs to another account")

// ErrSlotTaken is returned by CreateBooking when a concurrent booking won the
// slot between the handler's availability check and the insert.
var ErrSlotTaken = errors.New("slot already booked")

// Store is the data-access surface the default handlers need. The production
// implementation lives in the store package (Postgres via bun); tests supply
// fakes.
type Store interface {
	Rooms(ctx context.Context) ([]contractx.RoomInfo, error)
	RoomByID(ctx context.Context, roomID string) (*contractx.RoomInfo, error)

	OverlappingBookings(ctx context.Context, roomID, date, start, end string) ([]contractx.BookingInfo, error)
	CreateBooking(ctx context.Context, b *contractx.BookingInfo) error
	BookingsByEmail(ctx context.Context, email string) ([]contractx.BookingInfo, error)
	BookingsByDate(ctx context.Context, date string) ([]contractx.BookingInfo, error)
	CancelBooking(ctx context.Context, bookingID, email string) error

	CreateTicket(ctx context.Context, t *contractx.TicketInfo) error
	TicketByID(ctx context.Context, ticketID string) (*contractx.TicketInfo, error)
	OpenTicketsByEmail(ctx context.Context, email string) ([]contractx.TicketInfo, error)
	OpenTickets(ctx context.Context) ([]contractx.TicketInfo, error)

	SearchGallery(ctx context.Context, query, kind string) ([]contractx.GalleryItem, error)
	EquipmentByName(ctx context.Context, name string) (*contractx.EquipmentInfo, error)
	SearchFAQ(ctx context.Context, question string) ([]contractx.FAQAnswer, error)
}
