package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/splitbill/split-the-bill/internal/model"
	"github.com/splitbill/split-the-bill/internal/money"
	"github.com/splitbill/split-the-bill/internal/service"
	"github.com/splitbill/split-the-bill/internal/storage"
)

// Money crosses the API boundary in decimal units only; the conversions
// below are the single place where minor units become floats.

func userResponse(u *model.User) echo.Map {
	return echo.Map{
		"id":          u.ID,
		"telegram_id": u.TelegramID,
		"username":    u.Username,
		"avatar_url":  u.AvatarURL,
	}
}

func billResponse(b *model.Bill) echo.Map {
	return echo.Map{
		"id":              b.ID,
		"owner_id":        b.OwnerID,
		"title":           b.Title,
		"payment_details": b.PaymentDetails,
		"total_sum":       money.FromMinorUnits(b.TotalSum),
		"unallocated_sum": money.FromMinorUnits(b.UnallocatedSum),
		"split_mode":      b.SplitMode,
		"status":          b.Status,
		"created_at":      b.CreatedAt.Format(time.RFC3339),
	}
}

func participantResponse(v service.ParticipantView) echo.Map {
	p := v.Participant
	resp := echo.Map{
		"id":               p.ID,
		"bill_id":          p.BillID,
		"allocated_amount": money.FromMinorUnits(p.AllocatedAmount),
		"is_paid":          p.IsPaid,
	}
	if p.IsUser() {
		resp["user_id"] = *p.UserID
		resp["username"] = v.Username
		resp["avatar_url"] = v.AvatarURL
	} else {
		resp["guest_name"] = p.GuestName
	}
	return resp
}

func itemResponse(it *model.BillItem) echo.Map {
	resp := echo.Map{
		"id":       it.ID,
		"bill_id":  it.BillID,
		"name":     it.Name,
		"price":    money.FromMinorUnits(it.Price),
		"count":    it.Count,
		"item_sum": money.FromMinorUnits(it.ItemSum),
	}
	if it.AssignedToUserID != nil {
		resp["assigned_to"] = *it.AssignedToUserID
	}
	return resp
}

func billDetailsResponse(d *service.BillDetails) echo.Map {
	participants := make([]echo.Map, 0, len(d.Participants))
	for _, v := range d.Participants {
		participants = append(participants, participantResponse(v))
	}
	items := make([]echo.Map, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, itemResponse(it))
	}
	resp := billResponse(d.Bill)
	resp["participants"] = participants
	resp["items"] = items
	return resp
}

func billSummaryResponse(s storage.BillSummary) echo.Map {
	resp := billResponse(&s.Bill)
	resp["participant_count"] = s.ParticipantCount
	return resp
}
