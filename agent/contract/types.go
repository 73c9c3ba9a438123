package contract

import "time"

// ArgType is the declared type of one action argument.
type ArgType string

const (
	ArgString  ArgType = "string"
	ArgInteger ArgType = "integer"
	ArgNumber  ArgType = "number"
	ArgBoolean ArgType = "boolean"
	// ArgDate and ArgTime carry string values in "2006-01-02" / "15:04" form.
	// Relative Thai expressions ("พรุ่งนี้", "บ่ายสอง") are resolved by the
	// extractor before validation ever sees them.
	ArgDate ArgType = "date"
	ArgTime ArgType = "time"
)

// ArgSpec describes one named slot of an action.
type ArgSpec struct {
	Name     string
	Type     ArgType
	Desc     string
	Required bool
	Enum     []string // allowed values, string args only
}

// RenderHint tells the renderer which message shape a result prefers.
type RenderHint string

const (
	HintText RenderHint = "text"
	HintCard RenderHint = "card"
)

// ActionDescriptor is the static schema of one action. Descriptors are
// registered once at process start and never mutated afterwards.
type ActionDescriptor struct {
	Name string
	Desc string
	Args []ArgSpec
	Hint RenderHint
}

// ActionInvocation is a resolved action name plus extracted argument values.
// It lives only for the duration of one dispatch.
type ActionInvocation struct {
	Action string         `json:"action"`
	Args   map[string]any `json:"args,omitempty"`
}

// ActionResult is what a domain handler reports back. Success=false is a
// business-rule rejection (slot taken, ticket not found), not a system error.
type ActionResult struct {
	Success bool
	Reason  string // rejection detail when Success is false
	Payload any
	Hint    RenderHint
}

// ReplyKind tags the outbound message shape.
type ReplyKind string

const (
	ReplyText ReplyKind = "text"
	ReplyCard ReplyKind = "card"
)

// OutboundReply is the final user-visible message for one turn.
type OutboundReply struct {
	Kind ReplyKind
	Body string         // plain text, or alt text when Kind is card
	Card map[string]any // flex payload when Kind is card
}

// ConversationTurn is one inbound message after ingress decoding. Ephemeral.
type ConversationTurn struct {
	UserID  string
	Text    string
	ImageID string // platform content id when the message is an image
	At      time.Time
}

// IdentityBinding maps a chat-platform user id to an internal account.
// Created once by the registration flow; the agent only reads it.
type IdentityBinding struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

/* --------------------------- domain payloads ---------------------------- */

// BookingInfo is one room or photographer booking.
type BookingInfo struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Date      string    `json:"date"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Purpose   string    `json:"purpose,omitempty"`
	BookedBy  string    `json:"booked_by"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomAvailability reports whether a slot is free and which bookings collide.
type RoomAvailability struct {
	Room      string        `json:"room"`
	Date      string        `json:"date"`
	Start     string        `json:"start"`
	End       string        `json:"end"`
	Free      bool          `json:"free"`
	Conflicts []BookingInfo `json:"conflicts,omitempty"`
}

// RoomInfo is one bookable room.
type RoomInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity,omitempty"`
}

// TicketInfo is one IT repair ticket.
type TicketInfo struct {
	ID       string    `json:"id"`
	Category string    `json:"category"`
	Detail   string    `json:"detail"`
	Location string    `json:"location,omitempty"`
	Status   string    `json:"status"`
	Reporter string    `json:"reporter"`
	OpenedAt time.Time `json:"opened_at"`
}

// GalleryItem is one photo or video album entry.
type GalleryItem struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Keywords []string  `json:"keywords,omitempty"`
	URL      string    `json:"url"`
	Kind     string    `json:"kind"` // photo | video
	ShotAt   time.Time `json:"shot_at"`
}

// EquipmentInfo is the loan/repair status of one inventory item.
type EquipmentInfo struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Holder    string    `json:"holder,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FAQAnswer is a knowledge-base match.
type FAQAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// DailySummary aggregates one day's bookings and open tickets.
type DailySummary struct {
	Date        string        `json:"date"`
	Bookings    []BookingInfo `json:"bookings,omitempty"`
	OpenTickets []TicketInfo  `json:"open_tickets,omitempty"`
}
