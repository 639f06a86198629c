package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diogopelaes/cemep-digital/internal/authz"
	"github.com/diogopelaes/cemep-digital/internal/middleware"
	"github.com/diogopelaes/cemep-digital/internal/models"
	"github.com/diogopelaes/cemep-digital/internal/service"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
	"github.com/diogopelaes/cemep-digital/pkg/response"
)

// ScheduleHandler serves the denormalized schedule snapshots and their
// CSV/PDF exports. Staff schedules admitted conditionally by the policy
// middleware are settled here against the snapshot's owning user.
type ScheduleHandler struct {
	service     *service.ScheduleService
	staffPolicy authz.Policy
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(svc *service.ScheduleService, staffPolicy authz.Policy) *ScheduleHandler {
	return &ScheduleHandler{service: svc, staffPolicy: staffPolicy}
}

// scheduleOwner lets the policy engine settle OWNER grants without loading
// the full staff row.
type scheduleOwner string

func (o scheduleOwner) OwnerUserID() string { return string(o) }

// GetSectionSchedule godoc
// @Summary Current weekly schedule of a section
// @Tags Schedules
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sections/{id}/schedule [get]
func (h *ScheduleHandler) GetSectionSchedule(c *gin.Context) {
	schedule, err := h.service.GetSectionSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// GetStaffSchedule godoc
// @Summary Current weekly schedule of a staff member
// @Tags Schedules
// @Produce json
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /staff/{id}/schedule [get]
func (h *ScheduleHandler) GetStaffSchedule(c *gin.Context) {
	staffID := c.Param("id")
	if !h.settleStaffAccess(c, staffID, "retrieve") {
		return
	}

	schedule, err := h.service.GetStaffSchedule(c.Request.Context(), staffID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// ExportSectionSchedule godoc
// @Summary Export a section schedule as CSV or PDF
// @Tags Schedules
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Section ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Router /sections/{id}/schedule/export [get]
func (h *ScheduleHandler) ExportSectionSchedule(c *gin.Context) {
	sectionID := c.Param("id")
	schedule, err := h.service.GetSectionSchedule(c.Request.Context(), sectionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.writeExport(c, schedule, fmt.Sprintf("section-schedule-%s", sectionID))
}

// ExportStaffSchedule godoc
// @Summary Export a staff schedule as CSV or PDF
// @Tags Schedules
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Staff ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Router /staff/{id}/schedule/export [get]
func (h *ScheduleHandler) ExportStaffSchedule(c *gin.Context) {
	staffID := c.Param("id")
	if !h.settleStaffAccess(c, staffID, authz.ActionExport) {
		return
	}

	schedule, err := h.service.GetStaffSchedule(c.Request.Context(), staffID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.writeExport(c, schedule, fmt.Sprintf("staff-schedule-%s", staffID))
}

// settleStaffAccess resolves a Conditional admission from the policy
// middleware by checking the staff member's linked user against the caller.
func (h *ScheduleHandler) settleStaffAccess(c *gin.Context, staffID, action string) bool {
	if !middleware.IsConditional(c) {
		return true
	}

	ownerUserID, err := h.service.OwnerForStaff(c.Request.Context(), staffID)
	if err != nil {
		response.Error(c, err)
		return false
	}

	principal := middleware.PrincipalFromContext(c)
	if !h.staffPolicy.Authorize(principal, action, scheduleOwner(ownerUserID)) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "schedule belongs to another staff member"))
		return false
	}
	return true
}

func (h *ScheduleHandler) writeExport(c *gin.Context, schedule *models.CurrentSchedule, baseName string) {
	format := c.DefaultQuery("format", "csv")

	payload, contentType, err := h.service.ExportSchedule(schedule, baseName, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", baseName, format))
	c.Data(http.StatusOK, contentType, payload)
}
