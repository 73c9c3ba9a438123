package render

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

// LINE carousels cap at 12 bubbles; we stay under that.
const maxCarouselItems = 10

// Text wraps a plain string reply.
func Text(body string) contractx.OutboundReply {
	return contractx.OutboundReply{Kind: contractx.ReplyText, Body: strings.TrimSpace(body)}
}

// Card wraps a flex payload with its alt text.
func Card(altText string, flex map[string]any) contractx.OutboundReply {
	return contractx.OutboundReply{Kind: contractx.ReplyCard, Body: strings.TrimSpace(altText), Card: flex}
}

// FromResult turns an ActionResult into the outbound message. Every branch
// returns a non-empty reply; a rendering gap must never eat a turn.
func FromResult(res contractx.ActionResult) contractx.OutboundReply {
	if !res.Success {
		reason := strings.TrimSpace(res.Reason)
		if reason == "" {
			reason = "ดำเนินการไม่สำเร็จ กรุณาลองใหม่อีกครั้งครับ"
		}
		return Text(reason)
	}

	switch p := res.Payload.(type) {
	case contractx.RoomAvailability:
		return roomAvailability(p)
	case contractx.BookingInfo:
		if res.Hint == contractx.HintCard {
			return bookingCard(p)
		}
		return Text(bookingLine(p))
	case []contractx.BookingInfo:
		return bookingList(p, res.Hint)
	case contractx.TicketInfo:
		if res.Hint == contractx.HintCard {
			return ticketCard(p)
		}
		return Text(ticketLine(p))
	case []contractx.TicketInfo:
		return ticketList(p, res.Hint)
	case []contractx.GalleryItem:
		return galleryList(p, res.Hint)
	case []contractx.RoomInfo:
		return roomList(p)
	case contractx.DailySummary:
		return dailySummary(p)
	case contractx.EquipmentInfo:
		return equipment(p)
	case contractx.FAQAnswer:
		return Text(p.Answer)
	case string:
		if strings.TrimSpace(p) == "" {
			return Text("เรียบร้อยครับ")
		}
		return Text(p)
	case nil:
		return Text("เรียบร้อยครับ")
	default:
		raw, err := json.Marshal(p)
		if err != nil || len(raw) == 0 {
			return Text("เรียบร้อยครับ")
		}
		return Text(string(raw))
	}
}

func roomAvailability(p contractx.RoomAvailability) contractx.OutboundReply {
	if p.Free {
		return Text(fmt.Sprintf("ห้อง %s ว่างวันที่ %s เวลา %s-%s ครับ", p.Room, p.Date, p.Start, p.End))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ห้อง %s ไม่ว่างช่วง %s %s-%s ครับ", p.Room, p.Date, p.Start, p.End)
	for _, c := range p.Conflicts {
		fmt.Fprintf(&b, "\n- %s-%s โดย %s", c.Start, c.End, c.BookedBy)
	}
	return Text(b.String())
}

func bookingLine(b contractx.BookingInfo) string {
	return fmt.Sprintf("จองห้อง %s วันที่ %s เวลา %s-%s เรียบร้อยครับ (รหัสจอง %s)", b.Room, b.Date, b.Start, b.End, b.ID)
}

func bookingCard(b contractx.BookingInfo) contractx.OutboundReply {
	lines := []string{
		"ห้อง: " + b.Room,
		"วันที่: " + b.Date,
		"เวลา: " + b.Start + "-" + b.End,
	}
	if b.Purpose != "" {
		lines = append(lines, "วัตถุประสงค์: "+b.Purpose)
	}
	lines = append(lines, "รหัสจอง: "+b.ID)
	return Card("ยืนยันการจองห้อง "+b.Room, bubble("จองห้องสำเร็จ", lines))
}

func bookingList(bs []contractx.BookingInfo, hint contractx.RenderHint) contractx.OutboundReply {
	if len(bs) == 0 {
		return Text("ไม่มีรายการจองห้องครับ")
	}
	if hint != contractx.HintCard {
		var b strings.Builder
		b.WriteString("รายการจองของคุณ:")
		for _, bk := range bs {
			fmt.Fprintf(&b, "\n- %s %s %s-%s (%s)", bk.Room, bk.Date, bk.Start, bk.End, bk.ID)
		}
		return Text(b.String())
	}
	bubbles := make([]map[string]any, 0, len(bs))
	for _, bk := range bs {
		if len(bubbles) == maxCarouselItems {
			break
		}
		bubbles = append(bubbles, bubble(bk.Room, []string{
			"วันที่: " + bk.Date,
			"เวลา: " + bk.Start + "-" + bk.End,
			"รหัสจอง: " + bk.ID,
		}))
	}
	return Card("รายการจองห้อง", carousel(bubbles))
}

func ticketLine(tk contractx.TicketInfo) string {
	return fmt.Sprintf("ใบแจ้งซ่อม %s (%s) สถานะ %s", tk.ID, tk.Category, statusThai(tk.Status))
}

func ticketCard(tk contractx.TicketInfo) contractx.OutboundReply {
	lines := []string{
		"ประเภท: " + tk.Category,
		"รายละเอียด: " + tk.Detail,
	}
	if tk.Location != "" {
		lines = append(lines, "สถานที่: "+tk.Location)
	}
	lines = append(lines, "สถานะ: "+statusThai(tk.Status))
	return Card("ใบแจ้งซ่อม "+tk.ID, bubble("ใบแจ้งซ่อม "+tk.ID, lines))
}

func ticketList(ts []contractx.TicketInfo, hint contractx.RenderHint) contractx.OutboundReply {
	if len(ts) == 0 {
		return Text("ไม่มีใบแจ้งซ่อมที่ค้างอยู่ครับ")
	}
	if hint != contractx.HintCard {
		var b strings.Builder
		b.WriteString("ใบแจ้งซ่อมของคุณ:")
		for _, tk := range ts {
			b.WriteString("\n- " + ticketLine(tk))
		}
		return Text(b.String())
	}
	bubbles := make([]map[string]any, 0, len(ts))
	for _, tk := range ts {
		if len(bubbles) == maxCarouselItems {
			break
		}
		bubbles = append(bubbles, bubble(tk.ID+" ("+tk.Category+")", []string{
			tk.Detail,
			"สถานะ: " + statusThai(tk.Status),
		}))
	}
	return Card("ใบแจ้งซ่อมของคุณ", carousel(bubbles))
}

func galleryList(items []contractx.GalleryItem, hint contractx.RenderHint) contractx.OutboundReply {
	if len(items) == 0 {
		return Text("ไม่พบรูปหรือวิดีโอที่ตรงกับคำค้นครับ")
	}
	if hint != contractx.HintCard {
		var b strings.Builder
		b.WriteString("อัลบั้มที่พบ:")
		for _, it := range items {
			fmt.Fprintf(&b, "\n- %s %s", it.Title, it.URL)
		}
		return Text(b.String())
	}
	bubbles := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if len(bubbles) == maxCarouselItems {
			break
		}
		bb := bubble(it.Title, []string{
			"ถ่ายเมื่อ: " + it.ShotAt.Format("2006-01-02"),
			it.URL,
		})
		if it.Kind == "photo" && it.URL != "" {
			bb["hero"] = map[string]any{
				"type":        "image",
				"url":         it.URL,
				"size":        "full",
				"aspectRatio": "20:13",
				"aspectMode":  "cover",
			}
		}
		bubbles = append(bubbles, bb)
	}
	return Card("ผลการค้นหาอัลบั้ม", carousel(bubbles))
}

func roomList(rooms []contractx.RoomInfo) contractx.OutboundReply {
	if len(rooms) == 0 {
		return Text("ยังไม่มีห้องในระบบครับ")
	}
	var b strings.Builder
	b.WriteString("ห้องที่จองได้:")
	for _, r := range rooms {
		fmt.Fprintf(&b, "\n- %s (%s", r.Name, r.ID)
		if r.Capacity > 0 {
			fmt.Fprintf(&b, ", จุ %d คน", r.Capacity)
		}
		b.WriteString(")")
	}
	return Text(b.String())
}

func dailySummary(s contractx.DailySummary) contractx.OutboundReply {
	var b strings.Builder
	fmt.Fprintf(&b, "สรุปวันที่ %s", s.Date)
	if len(s.Bookings) == 0 {
		b.WriteString("\nการจองห้อง: ไม่มี")
	} else {
		fmt.Fprintf(&b, "\nการจองห้อง %d รายการ:", len(s.Bookings))
		for _, bk := range s.Bookings {
			fmt.Fprintf(&b, "\n- %s %s-%s (%s)", bk.Room, bk.Start, bk.End, bk.BookedBy)
		}
	}
	if len(s.OpenTickets) == 0 {
		b.WriteString("\nแจ้งซ่อมค้าง: ไม่มี")
	} else {
		fmt.Fprintf(&b, "\nแจ้งซ่อมค้าง %d รายการ:", len(s.OpenTickets))
		for _, tk := range s.OpenTickets {
			b.WriteString("\n- " + ticketLine(tk))
		}
	}
	return Text(b.String())
}

func equipment(e contractx.EquipmentInfo) contractx.OutboundReply {
	msg := fmt.Sprintf("%s สถานะ: %s", e.Name, e.Status)
	if e.Holder != "" {
		msg += " (ผู้ยืม: " + e.Holder + ")"
	}
	return Text(msg)
}

func statusThai(status string) string {
	switch status {
	case "open":
		return "รอดำเนินการ"
	case "in_progress":
		return "กำลังซ่อม"
	case "done":
		return "เสร็จแล้ว"
	default:
		return status
	}
}

/* ----------------------------- flex helpers ----------------------------- */

func bubble(title string, lines []string) map[string]any {
	contents := make([]map[string]any, 0, len(lines)+1)
	contents = append(contents, map[string]any{
		"type":   "text",
		"text":   title,
		"weight": "bold",
		"size":   "md",
		"wrap":   true,
	})
	for _, line := range lines {
		contents = append(contents, map[string]any{
			"type": "text",
			"text": line,
			"size": "sm",
			"wrap": true,
		})
	}
	return map[string]any{
		"type": "bubble",
		"body": map[string]any{
			"type":     "box",
			"layout":   "vertical",
			"spacing":  "sm",
			"contents": contents,
		},
	}
}

func carousel(bubbles []map[string]any) map[string]any {
	if len(bubbles) == 1 {
		return bubbles[0]
	}
	return map[string]any{
		"type":     "carousel",
		"contents": bubbles,
	}
}
