package booking

import (
	"strings"

	"agendamento-backend/internal/ingest"
	"agendamento-backend/internal/models"
)

type ClientInput struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required,phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

// Request is a booking submission after shape normalization.
type Request struct {
	Date          string      `json:"date" validate:"required,date"`
	Time          string      `json:"time" validate:"required,clock"`
	Service       string      `json:"service" validate:"required"`
	Price         float64     `json:"price" validate:"gte=0"`
	Client        ClientInput `json:"client"`
	PaymentMethod string      `json:"paymentMethod"`
	Notes         string      `json:"notes"`
}

// RequestFrom adapts a payload of any accepted shape.
func RequestFrom(p ingest.BookingPayload) Request {
	return Request{
		Date:          strings.TrimSpace(p.Date),
		Time:          strings.TrimSpace(p.Time),
		Service:       strings.TrimSpace(p.Service),
		Price:         p.Price,
		Client:        ClientInput{Name: strings.TrimSpace(p.Client.Name), Phone: strings.TrimSpace(p.Client.Phone), Email: strings.TrimSpace(p.Client.Email)},
		PaymentMethod: p.PaymentMethod,
		Notes:         p.Notes,
	}
}

func (r Request) client(placeholderEmail string) models.Client {
	email := r.Client.Email
	if email == "" {
		email = placeholderEmail
	}
	return models.Client{Name: r.Client.Name, Phone: r.Client.Phone, Email: email}
}

// PaymentInfo is what the caller needs to pay a PIX charge.
type PaymentInfo struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	Amount       float64 `json:"amount"`
	QRCode       string  `json:"qrCode"`
	QRCodeBase64 string  `json:"qrCodeBase64"`
	TicketURL    string  `json:"ticketUrl,omitempty"`
}

type Result struct {
	AppointmentID string       `json:"appointmentId,omitempty"`
	Payment       *PaymentInfo `json:"payment,omitempty"`
}
