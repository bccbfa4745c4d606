package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/dto"
	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type personService interface {
	Save(ctx context.Context, person models.Person) (*models.Person, error)
	FindByID(ctx context.Context, id string) (*models.Person, error)
	FindByNationalID(ctx context.Context, nationalID string) (*models.Person, error)
	ListAll(ctx context.Context) ([]models.Person, error)
	Delete(ctx context.Context, id string) error
}

// PersonHandler exposes person endpoints.
type PersonHandler struct {
	people personService
}

// NewPersonHandler constructs PersonHandler.
func NewPersonHandler(people personService) *PersonHandler {
	return &PersonHandler{people: people}
}

// Create godoc
// @Summary Register person
// @Tags People
// @Accept json
// @Produce json
// @Param payload body dto.PersonRequest true "Person payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /people [post]
func (h *PersonHandler) Create(c *gin.Context) {
	var req dto.PersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	person, err := h.people.Save(c.Request.Context(), req.ToModel(""))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, person)
}

// List godoc
// @Summary List people
// @Tags People
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /people [get]
func (h *PersonHandler) List(c *gin.Context) {
	people, err := h.people.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, people)
}

// Get godoc
// @Summary Get person
// @Tags People
// @Produce json
// @Param id path string true "Person ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /people/{id} [get]
func (h *PersonHandler) Get(c *gin.Context) {
	person, err := h.people.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if person == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "person not found"))
		return
	}
	response.OK(c, person)
}

// GetByNationalID godoc
// @Summary Get person by national ID
// @Tags People
// @Produce json
// @Param cpf path string true "National ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /people/cpf/{cpf} [get]
func (h *PersonHandler) GetByNationalID(c *gin.Context) {
	person, err := h.people.FindByNationalID(c.Request.Context(), c.Param("cpf"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if person == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "person not found"))
		return
	}
	response.OK(c, person)
}

// Update godoc
// @Summary Replace person
// @Tags People
// @Accept json
// @Produce json
// @Param id path string true "Person ID"
// @Param payload body dto.PersonRequest true "Person payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /people/{id} [put]
func (h *PersonHandler) Update(c *gin.Context) {
	var req dto.PersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	person, err := h.people.Save(c.Request.Context(), req.ToModel(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, person)
}

// Delete godoc
// @Summary Delete person
// @Tags People
// @Param id path string true "Person ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /people/{id} [delete]
func (h *PersonHandler) Delete(c *gin.Context) {
	if err := h.people.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
