package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diogopelaes/cemep-digital/internal/service"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
	"github.com/diogopelaes/cemep-digital/pkg/response"
)

// TeacherSectionHandler handles teacher-to-subject-section assignment endpoints.
type TeacherSectionHandler struct {
	service *service.TeacherSectionService
}

// NewTeacherSectionHandler constructs a teacher-section handler.
func NewTeacherSectionHandler(svc *service.TeacherSectionService) *TeacherSectionHandler {
	return &TeacherSectionHandler{service: svc}
}

// ListBySection godoc
// @Summary List teaching assignments within a section
// @Tags Assignments
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/teachers [get]
func (h *TeacherSectionHandler) ListBySection(c *gin.Context) {
	assignments, err := h.service.ListBySection(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Create godoc
// @Summary Assign a staff member to a subject-section
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.CreateTeacherSectionRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /teacher-sections [post]
func (h *TeacherSectionHandler) Create(c *gin.Context) {
	var req service.CreateTeacherSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}

	assignment, err := h.service.Create(c.Request.Context(), req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Delete godoc
// @Summary Remove a teaching assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /teacher-sections/{id} [delete]
func (h *TeacherSectionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
