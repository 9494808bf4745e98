package handler

import (
	"github.com/gofiber/fiber/v2"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/service"
)

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(s service.ReportService) *ReportHandler {
	return &ReportHandler{service: s}
}

func period(c *fiber.Ctx) service.Period {
	return service.Period{From: c.Query("from"), To: c.Query("to")}
}

// GetStockCard returns the running-balance card of one product
// Query params: from, to (YYYY-MM-DD)
func (h *ReportHandler) GetStockCard(c *fiber.Ctx) error {
	card, err := h.service.StockCard(c.UserContext(), param(c, "productId"), period(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(card)
}

func (h *ReportHandler) GetRecap(c *fiber.Ctx) error {
	rows, err := h.service.Recap(c.UserContext(), period(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// GetMovements lists every movement, newest first
// Query params: from, to, search, type, all
func (h *ReportHandler) GetMovements(c *fiber.Ctx) error {
	logs, err := h.service.Movements(c.UserContext(), service.MovementQuery{
		Period: period(c),
		Search: c.Query("search"),
		Type:   model.LogType(c.Query("type")),
		All:    c.QueryBool("all"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(logs)
}
