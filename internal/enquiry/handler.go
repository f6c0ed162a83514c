// Package enquiry handles the website contact form: it validates the
// payload, notifies the studio inbox and sends the customer an
// acknowledgement.
package enquiry

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/studioxv/booking-platform/internal/notify"
	"github.com/studioxv/booking-platform/internal/notify/templates"
	"github.com/studioxv/booking-platform/pkg/logging"
)

// serviceNames maps the form's service codes to display names.
var serviceNames = map[string]string{
	"recording":  "Recording",
	"mixing":     "Mixing",
	"mastering":  "Mastering",
	"production": "Production",
	"podcast":    "Podcast",
	"voiceover":  "Voiceover",
	"other":      "General",
}

// Request is the contact form payload.
type Request struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=30"`
	Service string `json:"service" validate:"required"`
	Project string `json:"project" validate:"required,min=10,max=2000"`
	Budget  string `json:"budget" validate:"omitempty,max=50"`
}

// Handler serves POST /api/enquiries.
type Handler struct {
	sender       notify.EmailSender
	enquiryInbox string
	validate     *validator.Validate
	logger       *logging.Logger
}

// NewHandler creates the enquiry handler. enquiryInbox is the studio address
// that receives the notification.
func NewHandler(sender notify.EmailSender, enquiryInbox string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		sender:       sender,
		enquiryInbox: enquiryInbox,
		validate:     validator.New(),
		logger:       logger,
	}
}

type response struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Submit handles an enquiry submission.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	service, ok := serviceNames[req.Service]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown service")
		return
	}

	reference := uuid.New().String()[:8]
	data := templates.EnquiryData{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Service: service,
		Budget:  req.Budget,
		Message: req.Project,
	}

	notification, err := templates.EnquiryNotification(data)
	if err != nil {
		h.logger.Error("enquiry notification template failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not process enquiry")
		return
	}
	if err := h.sender.Send(r.Context(), notify.EmailMessage{
		To:      h.enquiryInbox,
		Subject: notification.Subject,
		Body:    notification.Text,
		ReplyTo: req.Email,
	}); err != nil {
		h.logger.Error("enquiry notification failed", "reference", reference, "error", err)
		writeError(w, http.StatusBadGateway, "could not deliver enquiry")
		return
	}

	// The studio has the enquiry at this point; a failed auto-reply must not
	// turn the submission into an error.
	reply, err := templates.EnquiryAutoReply(data)
	if err == nil {
		err = h.sender.Send(r.Context(), notify.EmailMessage{
			To:      req.Email,
			ToName:  req.Name,
			Subject: reply.Subject,
			Body:    reply.Text,
			HTML:    reply.HTML,
		})
	}
	if err != nil {
		h.logger.Warn("enquiry auto-reply failed", "reference", reference, "error", err)
	}

	h.logger.Info("enquiry received", "reference", reference, "service", req.Service)
	writeJSON(w, http.StatusOK, response{Reference: reference, Status: "received"})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		switch f.Tag() {
		case "required":
			return f.Field() + " is required"
		case "email":
			return "email address is not valid"
		case "min":
			return f.Field() + " is too short"
		case "max":
			return f.Field() + " is too long"
		}
	}
	return "invalid enquiry"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
