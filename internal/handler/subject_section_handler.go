package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diogopelaes/cemep-digital/internal/service"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
	"github.com/diogopelaes/cemep-digital/pkg/response"
)

// SubjectSectionHandler handles subject-to-section assignment endpoints.
type SubjectSectionHandler struct {
	service *service.SubjectSectionService
}

// NewSubjectSectionHandler constructs a subject-section handler.
func NewSubjectSectionHandler(svc *service.SubjectSectionService) *SubjectSectionHandler {
	return &SubjectSectionHandler{service: svc}
}

// ListBySection godoc
// @Summary List subjects assigned to a section
// @Tags Assignments
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/subjects [get]
func (h *SubjectSectionHandler) ListBySection(c *gin.Context) {
	assignments, err := h.service.ListBySection(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Create godoc
// @Summary Assign a subject to a section
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.CreateSubjectSectionRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /subject-sections [post]
func (h *SubjectSectionHandler) Create(c *gin.Context) {
	var req service.CreateSubjectSectionRequest
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
// @Summary Remove a subject from a section
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /subject-sections/{id} [delete]
func (h *SubjectSectionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
