package handler

import (
	"github.com/gofiber/fiber/v2"

	"go-stock-ledger/internal/middleware"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/service"
)

type InventoryHandler struct {
	service service.InventoryService
}

func NewInventoryHandler(s service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.Products(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.service.Product(c.UserContext(), param(c, "id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var in service.ProductInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	product, err := h.service.CreateProduct(c.UserContext(), in, middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *InventoryHandler) UpdateProduct(c *fiber.Ctx) error {
	var in service.ProductInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	updated, err := h.service.UpdateProduct(c.UserContext(), param(c, "id"), in, middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

func (h *InventoryHandler) DeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), param(c, "id"), middleware.ActorFrom(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

// Recalculate rebuilds the cached stock of one product
// POST /api/v1/products/:id/recalculate
func (h *InventoryHandler) Recalculate(c *fiber.Ctx) error {
	drift, err := h.service.Recalculate(c.UserContext(), param(c, "id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(drift)
}

// RecalculateAll rebuilds every product and lists the ones that drifted
// POST /api/v1/products/recalculate
func (h *InventoryHandler) RecalculateAll(c *fiber.Ctx) error {
	drifts, err := h.service.RecalculateAll(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if drifts == nil {
		drifts = []service.Drift{}
	}
	return c.JSON(fiber.Map{"corrected": drifts})
}

func (h *InventoryHandler) CorrectProduct(c *fiber.Ctx) error {
	var req service.CorrectionRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	product, err := h.service.CorrectProduct(c.UserContext(), param(c, "id"), req, middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock corrected", "data": product})
}

func (h *InventoryHandler) GetBatches(c *fiber.Ctx) error {
	batches, err := h.service.Batches(c.UserContext(), param(c, "id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(batches)
}

// GetUnits lists stock units
// Query params: product_id, status, search
func (h *InventoryHandler) GetUnits(c *fiber.Ctx) error {
	units, err := h.service.Units(c.UserContext(), repository.UnitFilter{
		ProductID: c.Query("product_id"),
		Status:    model.UnitStatus(c.Query("status")),
		Search:    c.Query("search"),
	})
	if err != nil {
		return respondError(c, err)
	}
	if units == nil {
		units = []model.StockUnit{}
	}
	return c.JSON(units)
}

func (h *InventoryHandler) RegisterUnits(c *fiber.Ctx) error {
	var req service.RegisterUnitsRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	res, err := h.service.RegisterUnits(c.UserContext(), req, middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Labels registered", "data": res})
}

func (h *InventoryHandler) Lookup(c *fiber.Ctx) error {
	res, err := h.service.LookupCode(c.UserContext(), param(c, "code"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *InventoryHandler) Inbound(c *fiber.Ctx) error {
	var req service.InboundRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	units, err := h.service.Inbound(c.UserContext(), req, middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Inbound recorded", "data": units})
}

func (h *InventoryHandler) Outbound(c *fiber.Ctx) error {
	var req service.OutboundRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	units, err := h.service.Outbound(c.UserContext(), req, middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Outbound recorded", "data": units})
}

func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var req service.AdjustRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	unit, err := h.service.Adjust(c.UserContext(), req, middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unit adjusted", "data": unit})
}
