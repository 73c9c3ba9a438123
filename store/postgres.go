// Package store is the Postgres persistence layer behind the action
// handlers: rooms, bookings, repair tickets, the media gallery, equipment
// inventory and the FAQ knowledge base.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	actionsx "github.com/Khinkawu/crms6it-sub002/agent/actions"
	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

const (
	bookingIDPrefix = "BK-"
	ticketIDPrefix  = "RT-"

	// Gallery and FAQ matching happens in Go, so the queries just bound how
	// much recent data gets pulled.
	galleryFetchLimit = 100
	faqFetchLimit     = 200
)

type Config struct {
	DSN string `envconfig:"DSN" split_words:"true" required:"true"`
}

type Postgres struct {
	db *bun.DB
}

var _ actionsx.Store = (*Postgres)(nil)

func New(cfg Config) (*Postgres, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &Postgres{db: db}, nil
}

// NewWithDB wraps an existing bun handle; used by tests.
func NewWithDB(db *bun.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

/* --------------------------------- models -------------------------------- */

type roomRow struct {
	bun.BaseModel `bun:"table:rooms"`

	ID       string `bun:"id,pk"`
	Name     string `bun:"name,notnull"`
	Capacity int    `bun:"capacity"`
}

type bookingRow struct {
	bun.BaseModel `bun:"table:bookings"`

	ID         int64      `bun:"id,pk,autoincrement"`
	RoomID     string     `bun:"room_id,notnull"`
	RoomName   string     `bun:"room_name,notnull"`
	Date       string     `bun:"date,notnull"`
	StartTime  string     `bun:"start_time,notnull"`
	EndTime    string     `bun:"end_time,notnull"`
	Purpose    string     `bun:"purpose"`
	BookedBy   string     `bun:"booked_by,notnull"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	CanceledAt *time.Time `bun:"canceled_at"`
}

type ticketRow struct {
	bun.BaseModel `bun:"table:tickets"`

	ID       int64     `bun:"id,pk,autoincrement"`
	Category string    `bun:"category,notnull"`
	Detail   string    `bun:"detail,notnull"`
	Location string    `bun:"location"`
	Status   string    `bun:"status,notnull,default:'open'"`
	Reporter string    `bun:"reporter,notnull"`
	OpenedAt time.Time `bun:"opened_at,notnull,default:current_timestamp"`
}

type galleryRow struct {
	bun.BaseModel `bun:"table:gallery_items"`

	ID       string    `bun:"id,pk"`
	Title    string    `bun:"title,notnull"`
	Kind     string    `bun:"kind,notnull"`
	URL      string    `bun:"url,notnull"`
	Keywords []string  `bun:"keywords,array"`
	ShotAt   time.Time `bun:"shot_at,notnull"`
}

type equipmentRow struct {
	bun.BaseModel `bun:"table:equipment"`

	ID     string `bun:"id,pk"`
	Name   string `bun:"name,notnull"`
	Status string `bun:"status,notnull"`
	Holder string `bun:"holder"`
}

type faqRow struct {
	bun.BaseModel `bun:"table:faq_entries"`

	ID       int64    `bun:"id,pk,autoincrement"`
	Question string   `bun:"question,notnull"`
	Answer   string   `bun:"answer,notnull"`
	Keywords []string `bun:"keywords,array"`
}

/* --------------------------------- rooms --------------------------------- */

func (p *Postgres) Rooms(ctx context.Context) ([]contractx.RoomInfo, error) {
	var rows []roomRow
	if err := p.db.NewSelect().Model(&rows).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select rooms: %w", err)
	}
	out := make([]contractx.RoomInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, contractx.RoomInfo{ID: r.ID, Name: r.Name, Capacity: r.Capacity})
	}
	return out, nil
}

func (p *Postgres) RoomByID(ctx context.Context, roomID string) (*contractx.RoomInfo, error) {
	var row roomRow
	err := p.db.NewSelect().Model(&row).Where("id = ?", strings.TrimSpace(roomID)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, actionsx.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}
	return &contractx.RoomInfo{ID: row.ID, Name: row.Name, Capacity: row.Capacity}, nil
}

/* -------------------------------- bookings -------------------------------- */

func (p *Postgres) OverlappingBookings(ctx context.Context, roomID, date, start, end string) ([]contractx.BookingInfo, error) {
	var rows []bookingRow
	err := p.db.NewSelect().Model(&rows).
		Where("room_id = ?", roomID).
		Where("date = ?", date).
		Where("start_time < ?", end).
		Where("end_time > ?", start).
		Where("canceled_at IS NULL").
		Order("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select overlapping bookings: %w", err)
	}
	return bookingsFromRows(rows), nil
}

func (p *Postgres) CreateBooking(ctx context.Context, b *contractx.BookingInfo) error {
	roomID := b.Room
	roomName := b.Room
	if room, err := p.RoomByID(ctx, b.Room); err == nil {
		roomName = room.Name
	} else if !errors.Is(err, actionsx.ErrNotFound) {
		return err
	}

	row := &bookingRow{
		RoomID:    roomID,
		RoomName:  roomName,
		Date:      b.Date,
		StartTime: b.Start,
		EndTime:   b.End,
		Purpose:   b.Purpose,
		BookedBy:  b.BookedBy,
		CreatedAt: b.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	// The handler already checked availability, but two webhooks can pass
	// that check for the same slot. Re-check and insert in one serializable
	// transaction so one of them loses.
	err := p.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		taken, err := tx.NewSelect().Model((*bookingRow)(nil)).
			Where("room_id = ?", row.RoomID).
			Where("date = ?", row.Date).
			Where("start_time < ?", row.EndTime).
			Where("end_time > ?", row.StartTime).
			Where("canceled_at IS NULL").
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("recheck slot: %w", err)
		}
		if taken {
			return actionsx.ErrSlotTaken
		}

		if _, err := tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.ID = fmt.Sprintf("%s%d", bookingIDPrefix, row.ID)
	b.Room = roomName
	return nil
}

func (p *Postgres) BookingsByEmail(ctx context.Context, email string) ([]contractx.BookingInfo, error) {
	var rows []bookingRow
	err := p.db.NewSelect().Model(&rows).
		Where("booked_by = ?", strings.ToLower(strings.TrimSpace(email))).
		Where("canceled_at IS NULL").
		Order("date ASC").
		Order("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select bookings by email: %w", err)
	}
	return bookingsFromRows(rows), nil
}

func (p *Postgres) BookingsByDate(ctx context.Context, date string) ([]contractx.BookingInfo, error) {
	var rows []bookingRow
	err := p.db.NewSelect().Model(&rows).
		Where("date = ?", date).
		Where("canceled_at IS NULL").
		Order("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select bookings by date: %w", err)
	}
	return bookingsFromRows(rows), nil
}

func (p *Postgres) CancelBooking(ctx context.Context, bookingID, email string) error {
	id, ok := parsePublicID(bookingID, bookingIDPrefix)
	if !ok {
		return actionsx.ErrNotFound
	}

	var row bookingRow
	err := p.db.NewSelect().Model(&row).
		Where("id = ?", id).
		Where("canceled_at IS NULL").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return actionsx.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("select booking: %w", err)
	}
	if !strings.EqualFold(row.BookedBy, strings.TrimSpace(email)) {
		return actionsx.ErrNotOwner
	}

	now := time.Now().UTC()
	_, err = p.db.NewUpdate().Model((*bookingRow)(nil)).
		Set("canceled_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	return nil
}

/* -------------------------------- tickets --------------------------------- */

func (p *Postgres) CreateTicket(ctx context.Context, t *contractx.TicketInfo) error {
	row := &ticketRow{
		Category: t.Category,
		Detail:   t.Detail,
		Location: t.Location,
		Status:   t.Status,
		Reporter: t.Reporter,
		OpenedAt: t.OpenedAt,
	}
	if row.Status == "" {
		row.Status = "open"
	}
	if row.OpenedAt.IsZero() {
		row.OpenedAt = time.Now().UTC()
	}

	if _, err := p.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}

	t.ID = fmt.Sprintf("%s%d", ticketIDPrefix, row.ID)
	return nil
}

func (p *Postgres) TicketByID(ctx context.Context, ticketID string) (*contractx.TicketInfo, error) {
	id, ok := parsePublicID(ticketID, ticketIDPrefix)
	if !ok {
		return nil, actionsx.ErrNotFound
	}

	var row ticketRow
	err := p.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, actionsx.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select ticket: %w", err)
	}
	ticket := ticketFromRow(row)
	return &ticket, nil
}

func (p *Postgres) OpenTicketsByEmail(ctx context.Context, email string) ([]contractx.TicketInfo, error) {
	var rows []ticketRow
	err := p.db.NewSelect().Model(&rows).
		Where("reporter = ?", strings.ToLower(strings.TrimSpace(email))).
		Where("status != 'done'").
		Order("opened_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select open tickets by email: %w", err)
	}
	return ticketsFromRows(rows), nil
}

func (p *Postgres) OpenTickets(ctx context.Context) ([]contractx.TicketInfo, error) {
	var rows []ticketRow
	err := p.db.NewSelect().Model(&rows).
		Where("status != 'done'").
		Order("opened_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select open tickets: %w", err)
	}
	return ticketsFromRows(rows), nil
}

/* --------------------------- gallery, faq, misc ---------------------------- */

// SearchGallery returns recent items for the requested kind; phrase matching
// and ordering against the Thai query happen in the rank package, which
// handles unspaced Thai better than SQL pattern matching.
func (p *Postgres) SearchGallery(ctx context.Context, query, kind string) ([]contractx.GalleryItem, error) {
	q := p.db.NewSelect().Model((*galleryRow)(nil)).
		Order("shot_at DESC").
		Limit(galleryFetchLimit)
	if k := strings.TrimSpace(kind); k != "" {
		q = q.Where("kind = ?", strings.ToLower(k))
	}

	var rows []galleryRow
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("select gallery items: %w", err)
	}

	out := make([]contractx.GalleryItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, contractx.GalleryItem{
			ID:       r.ID,
			Title:    r.Title,
			Kind:     r.Kind,
			URL:      r.URL,
			Keywords: r.Keywords,
			ShotAt:   r.ShotAt,
		})
	}
	return out, nil
}

func (p *Postgres) EquipmentByName(ctx context.Context, name string) (*contractx.EquipmentInfo, error) {
	trimmed := strings.TrimSpace(name)

	var row equipmentRow
	err := p.db.NewSelect().Model(&row).
		Where("id = ? OR name ILIKE ?", trimmed, "%"+trimmed+"%").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, actionsx.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select equipment: %w", err)
	}
	return &contractx.EquipmentInfo{Name: row.Name, Status: row.Status, Holder: row.Holder}, nil
}

func (p *Postgres) SearchFAQ(ctx context.Context, question string) ([]contractx.FAQAnswer, error) {
	var rows []faqRow
	err := p.db.NewSelect().Model(&rows).
		Order("id ASC").
		Limit(faqFetchLimit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select faq entries: %w", err)
	}
	return matchFAQ(rows, question), nil
}

// matchFAQ keeps entries whose keywords occur in the question. Keywords are
// curated per entry, so containment is enough; entries with more hits rank
// first.
func matchFAQ(rows []faqRow, question string) []contractx.FAQAnswer {
	normalized := strings.ToLower(strings.TrimSpace(question))
	if normalized == "" {
		return nil
	}

	type scored struct {
		answer contractx.FAQAnswer
		hits   int
	}
	var matched []scored
	for _, r := range rows {
		hits := 0
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(normalized, kw) {
				hits++
			}
		}
		if hits > 0 {
			matched = append(matched, scored{
				answer: contractx.FAQAnswer{Question: r.Question, Answer: r.Answer},
				hits:   hits,
			})
		}
	}

	for i := 1; i < len(matched); i++ {
		for j := i; j > 0 && matched[j].hits > matched[j-1].hits; j-- {
			matched[j], matched[j-1] = matched[j-1], matched[j]
		}
	}

	out := make([]contractx.FAQAnswer, 0, len(matched))
	for _, m := range matched {
		out = append(out, m.answer)
	}
	return out
}

/* -------------------------------- helpers --------------------------------- */

func parsePublicID(publicID, prefix string) (int64, bool) {
	trimmed := strings.TrimSpace(strings.ToUpper(publicID))
	if !strings.HasPrefix(trimmed, prefix) {
		return 0, false
	}
	var id int64
	if _, err := fmt.Sscanf(strings.TrimPrefix(trimmed, prefix), "%d", &id); err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func bookingsFromRows(rows []bookingRow) []contractx.BookingInfo {
	out := make([]contractx.BookingInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, contractx.BookingInfo{
			ID:        fmt.Sprintf("%s%d", bookingIDPrefix, r.ID),
			Room:      r.RoomName,
			Date:      r.Date,
			Start:     r.StartTime,
			End:       r.EndTime,
			Purpose:   r.Purpose,
			BookedBy:  r.BookedBy,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

func ticketFromRow(r ticketRow) contractx.TicketInfo {
	return contractx.TicketInfo{
		ID:       fmt.Sprintf("%s%d", ticketIDPrefix, r.ID),
		Category: r.Category,
		Detail:   r.Detail,
		Location: r.Location,
		Status:   r.Status,
		Reporter: r.Reporter,
		OpenedAt: r.OpenedAt,
	}
}

func ticketsFromRows(rows []ticketRow) []contractx.TicketInfo {
	out := make([]contractx.TicketInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, ticketFromRow(r))
	}
	return out
}
