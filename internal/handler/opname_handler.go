package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/middleware"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/service"
)

type OpnameHandler struct {
	service service.OpnameService
}

func NewOpnameHandler(s service.OpnameService) *OpnameHandler {
	return &OpnameHandler{service: s}
}

// ScanRequest carries one or more codes separated by commas, semicolons or whitespace.
type ScanRequest struct {
	Codes string `json:"codes"`
}

// GetGroups lists the auditable product+batch groups
// Query params: search
func (h *OpnameHandler) GetGroups(c *fiber.Ctx) error {
	groups, err := h.service.Groups(c.UserContext(), c.Query("search"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(groups)
}

func (h *OpnameHandler) GetSession(c *fiber.Ctx) error {
	v, err := h.service.Session(c.UserContext(), param(c, "sid"), middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(v)
}

func (h *OpnameHandler) UpdateLine(c *fiber.Ctx) error {
	var upd service.LineUpdate
	if err := parseBody(c, &upd); err != nil {
		return respondError(c, err)
	}
	v, err := h.service.UpdateLine(c.UserContext(), param(c, "sid"), param(c, "key"), upd, middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(v)
}

func (h *OpnameHandler) ResetLine(c *fiber.Ctx) error {
	v, err := h.service.ResetLine(c.UserContext(), param(c, "sid"), param(c, "key"), middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(v)
}

func (h *OpnameHandler) Scan(c *fiber.Ctx) error {
	var req ScanRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	res, err := h.service.Scan(c.UserContext(), param(c, "sid"), req.Codes, middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *OpnameHandler) Discard(c *fiber.Ctx) error {
	if err := h.service.Discard(c.UserContext(), param(c, "sid"), middleware.ActorFrom(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Session discarded"})
}

// Commit applies the session directly for an admin, or files approval requests otherwise
// POST /api/v1/opname/sessions/:sid/commit
func (h *OpnameHandler) Commit(c *fiber.Ctx) error {
	res, err := h.service.Commit(c.UserContext(), param(c, "sid"), middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	msg := "Stock opname applied"
	if len(res.Requests) > 0 {
		msg = "Stock opname submitted for approval"
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg, "data": res})
}

// GetRequests lists opname requests
// Query params: status (PENDING, APPROVED, REJECTED)
func (h *OpnameHandler) GetRequests(c *fiber.Ctx) error {
	status := model.OpnameStatus(strings.ToUpper(c.Query("status")))
	switch status {
	case "", model.OpnamePending, model.OpnameApproved, model.OpnameRejected:
	default:
		return respondError(c, apperror.Validation("unknown request status %q", status))
	}
	reqs, err := h.service.Requests(c.UserContext(), status)
	if err != nil {
		return respondError(c, err)
	}
	if reqs == nil {
		reqs = []model.OpnameRequest{}
	}
	return c.JSON(reqs)
}

func (h *OpnameHandler) Approve(c *fiber.Ctx) error {
	req, err := h.service.Approve(c.UserContext(), param(c, "id"), middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Request approved", "data": req})
}

func (h *OpnameHandler) Reject(c *fiber.Ctx) error {
	req, err := h.service.Reject(c.UserContext(), param(c, "id"), middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Request rejected", "data": req})
}
