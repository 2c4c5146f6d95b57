package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medibook/medibook-api/internal/service"
	appErrors "github.com/medibook/medibook-api/pkg/errors"
	"github.com/medibook/medibook-api/pkg/response"
)

// DoctorHandler exposes the public doctor directory.
type DoctorHandler struct {
	service *service.DoctorService
}

// NewDoctorHandler creates a new handler.
func NewDoctorHandler(svc *service.DoctorService) *DoctorHandler {
	return &DoctorHandler{service: svc}
}

// List godoc
// @Summary List approved doctors
// @Description List doctors available for booking
// @Tags Doctors
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /doctors [get]
func (h *DoctorHandler) List(c *gin.Context) {
	doctors, err := h.service.ListApproved(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doctors, nil)
}

// Availability godoc
// @Summary List a doctor's availability
// @Description List a doctor's availability days from today onward
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /doctors/{id}/availability [get]
func (h *DoctorHandler) Availability(c *gin.Context) {
	doctorID := c.Param("id")
	if doctorID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "doctor id required"))
		return
	}

	days, err := h.service.Availability(c.Request.Context(), doctorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, days, nil)
}
