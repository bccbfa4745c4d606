package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/dto"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, req service.EnrollRequest) (*models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ListByPerson(ctx context.Context, personID string) ([]models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.EnrollmentDetail, error)
	Cancel(ctx context.Context, id string) error
	Statement(ctx context.Context, personID, format string) (*service.Statement, error)
}

// EnrollmentHandler exposes the enrollment workflow.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll godoc
// @Summary Enroll a person in a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param cursoId query string false "Course ID"
// @Param status query string false "Payment status"
// @Param dueBefore query string false "Due before (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var query dto.EnrollmentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	filter := models.EnrollmentFilter{CourseID: query.CourseID}
	if query.Status != "" {
		status, err := models.ParsePaymentStatus(query.Status)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status"))
			return
		}
		filter.Status = status
	}
	if query.DueBefore != "" {
		due, err := models.ParseDate(query.DueBefore)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "dueBefore must be YYYY-MM-DD"))
			return
		}
		filter.DueBefore = due
	}
	details, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, details)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	detail, err := h.enrollments.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if detail == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found"))
		return
	}
	response.OK(c, detail)
}

// ListByPerson godoc
// @Summary List a person's enrollments
// @Tags Enrollments
// @Produce json
// @Param alunoId path string true "Person ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/aluno/{alunoId} [get]
func (h *EnrollmentHandler) ListByPerson(c *gin.Context) {
	details, err := h.enrollments.ListByPerson(c.Request.Context(), c.Param("alunoId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, details)
}

// Statement godoc
// @Summary Download a person's enrollment statement
// @Tags Enrollments
// @Produce text/csv
// @Produce application/pdf
// @Param alunoId path string true "Person ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /enrollments/aluno/{alunoId}/statement [get]
func (h *EnrollmentHandler) Statement(c *gin.Context) {
	var query dto.StatementQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	statement, err := h.enrollments.Statement(c.Request.Context(), c.Param("alunoId"), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, statement.Filename, statement.ContentType, statement.Body)
}

// UpdatePaymentStatus godoc
// @Summary Change the payment status of an enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.UpdatePaymentStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id}/status-pagamento [patch]
func (h *EnrollmentHandler) UpdatePaymentStatus(c *gin.Context) {
	var req dto.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.enrollments.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), models.PaymentStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Cancel godoc
// @Summary Cancel an enrollment
// @Tags Enrollments
// @Param id path string true "Enrollment ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Cancel(c *gin.Context) {
	if err := h.enrollments.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
