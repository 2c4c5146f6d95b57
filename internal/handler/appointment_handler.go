package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medibook/medibook-api/internal/dto"
	"github.com/medibook/medibook-api/internal/service"
	appErrors "github.com/medibook/medibook-api/pkg/errors"
	"github.com/medibook/medibook-api/pkg/response"
)

// AppointmentHandler wires HTTP endpoints to the booking service.
type AppointmentHandler struct {
	service *service.BookingService
}

// NewAppointmentHandler creates a new handler.
func NewAppointmentHandler(svc *service.BookingService) *AppointmentHandler {
	return &AppointmentHandler{service: svc}
}

// Book godoc
// @Summary Book an appointment
// @Description Reserve an open time slot with a doctor. At most one patient can book a given slot.
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.BookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments [post]
func (h *AppointmentHandler) Book(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}

	appointment, err := h.service.Book(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.BookingResponse{Message: "Appointment booked successfully", Appointment: appointment})
}

// ListForUser godoc
// @Summary List own bookings
// @Description List the appointments the authenticated user booked as a patient
// @Tags Appointments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /user/appointments [get]
func (h *AppointmentHandler) ListForUser(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	appointments, err := h.service.ListForPatient(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, appointments, nil)
}

// ListForDoctor godoc
// @Summary List appointments booked with the doctor
// @Description List the appointments patients booked with the authenticated doctor
// @Tags Appointments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /doctor/appointments [get]
func (h *AppointmentHandler) ListForDoctor(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	appointments, err := h.service.ListForDoctor(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, appointments, nil)
}
