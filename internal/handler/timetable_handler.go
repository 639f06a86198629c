package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diogopelaes/cemep-digital/internal/service"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
	"github.com/diogopelaes/cemep-digital/pkg/response"
)

// TimetableHandler handles validity window and grid slot endpoints.
type TimetableHandler struct {
	service *service.TimetableService
}

// NewTimetableHandler constructs a timetable handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// ListWindows godoc
// @Summary List validity windows of a section
// @Tags Timetables
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/windows [get]
func (h *TimetableHandler) ListWindows(c *gin.Context) {
	windows, err := h.service.ListWindows(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// CreateWindow godoc
// @Summary Open a validity window
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body service.CreateWindowRequest true "Window payload"
// @Success 201 {object} response.Envelope
// @Router /windows [post]
func (h *TimetableHandler) CreateWindow(c *gin.Context) {
	var req service.CreateWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}

	window, err := h.service.CreateWindow(c.Request.Context(), req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, window)
}

// UpdateWindow godoc
// @Summary Adjust a validity window's date range
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Window ID"
// @Param payload body service.UpdateWindowRequest true "Window payload"
// @Success 200 {object} response.Envelope
// @Router /windows/{id} [put]
func (h *TimetableHandler) UpdateWindow(c *gin.Context) {
	var req service.UpdateWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	window, err := h.service.UpdateWindow(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// DeleteWindow godoc
// @Summary Delete a validity window
// @Tags Timetables
// @Produce json
// @Param id path string true "Window ID"
// @Success 204
// @Router /windows/{id} [delete]
func (h *TimetableHandler) DeleteWindow(c *gin.Context) {
	if err := h.service.DeleteWindow(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSlots godoc
// @Summary List grid slots of a validity window
// @Tags Timetables
// @Produce json
// @Param id path string true "Window ID"
// @Success 200 {object} response.Envelope
// @Router /windows/{id}/slots [get]
func (h *TimetableHandler) ListSlots(c *gin.Context) {
	slots, err := h.service.ListSlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// CreateSlot godoc
// @Summary Place a subject on the weekly grid
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body service.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /slots [post]
func (h *TimetableHandler) CreateSlot(c *gin.Context) {
	var req service.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}

	slot, err := h.service.CreateSlot(c.Request.Context(), req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// UpdateSlot godoc
// @Summary Modify a grid slot
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body service.UpdateSlotRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Router /slots/{id} [put]
func (h *TimetableHandler) UpdateSlot(c *gin.Context) {
	var req service.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.service.UpdateSlot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// DeleteSlot godoc
// @Summary Remove a grid slot
// @Tags Timetables
// @Produce json
// @Param id path string true "Slot ID"
// @Success 204
// @Router /slots/{id} [delete]
func (h *TimetableHandler) DeleteSlot(c *gin.Context) {
	if err := h.service.DeleteSlot(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
