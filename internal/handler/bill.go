package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/splitbill/split-the-bill/internal/money"
	"github.com/splitbill/split-the-bill/internal/service"
)

// BillHandler exposes bill creation, listing, the detail view and
// reactions. Authentication is handled by middleware; handlers only read
// the user ID back from the context.
type BillHandler struct {
	Bills *service.BillService
}

func NewBillHandler(bills *service.BillService) *BillHandler {
	return &BillHandler{Bills: bills}
}

// CreateBill handles POST /v1/bills. Amounts arrive in decimal units;
// include_owner seats the creator immediately.
func (h *BillHandler) CreateBill(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		TotalSum       float64 `json:"total_sum"`
		Title          string  `json:"title"`
		PaymentDetails string  `json:"payment_details"`
		IncludeOwner   bool    `json:"include_owner"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	total, err := money.ToMinorUnits(body.TotalSum)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid total_sum"})
	}

	bill, err := h.Bills.Create(c.Request().Context(), userID, total, body.Title, body.PaymentDetails, body.IncludeOwner)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, billResponse(bill))
}

// GetBill handles GET /v1/bills/:id with participants and items inlined.
func (h *BillHandler) GetBill(c echo.Context) error {
	billID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	details, err := h.Bills.Get(c.Request().Context(), billID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, billDetailsResponse(details))
}

// ListBills handles GET /v1/bills?page=&limit= for the requesting user.
func (h *BillHandler) ListBills(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 20
	}

	summaries, err := h.Bills.List(c.Request().Context(), userID, (page-1)*limit, limit)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]echo.Map, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, billSummaryResponse(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"bills": out, "page": page})
}

// React handles POST /v1/bills/:id/reactions, fanning the emoji out to
// everyone watching the bill.
func (h *BillHandler) React(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	billID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body struct {
		Emoji string `json:"emoji"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Bills.React(c.Request().Context(), billID, userID, body.Emoji); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}
