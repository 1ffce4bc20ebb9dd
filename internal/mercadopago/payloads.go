package mercadopago

import (
	"encoding/json"
	"strings"
	"time"

	"agendamento-backend/internal/models"
)

// PixRequest describes a PIX charge for one booking.
type PixRequest struct {
	Amount      float64
	Description string
	Payer       models.Client
	// Metadata is echoed back by the provider on every read of the payment.
	Metadata map[string]string
	// IdempotencyKey is generated when empty.
	IdempotencyKey string
}

// Payment is the provider's view of a payment.
type Payment struct {
	ID             string
	Status         string
	StatusDetail   string
	Amount         float64
	Description    string
	Method         string
	Payer          models.Client
	DateCreated    time.Time
	QRCode         string
	QRCodeBase64   string
	TicketURL      string
	ExternalRef    string
	IdempotencyKey string
}

// ToModel keeps the fields the payments collection mirrors.
func (p Payment) ToModel() models.Payment {
	return models.Payment{
		ID:           p.ID,
		Status:       p.Status,
		StatusDetail: p.StatusDetail,
		Amount:       p.Amount,
		Description:  p.Description,
		Method:       p.Method,
		Payer:        p.Payer,
		DateCreated:  p.DateCreated,
	}
}

type phoneBody struct {
	AreaCode string `json:"area_code,omitempty"`
	Number   string `json:"number,omitempty"`
}

type payerBody struct {
	Email     string     `json:"email,omitempty"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	Phone     *phoneBody `json:"phone,omitempty"`
}

type createBody struct {
	TransactionAmount float64           `json:"transaction_amount"`
	Description       string            `json:"description"`
	PaymentMethodID   string            `json:"payment_method_id"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	ExternalReference string            `json:"external_reference,omitempty"`
	Payer             payerBody         `json:"payer"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type paymentBody struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	TransactionAmount float64     `json:"transaction_amount"`
	Description       string      `json:"description"`
	PaymentMethodID   string      `json:"payment_method_id"`
	DateCreated       string      `json:"date_created"`
	ExternalReference string      `json:"external_reference"`
	Payer             struct {
		Email     string    `json:"email"`
		FirstName string    `json:"first_name"`
		LastName  string    `json:"last_name"`
		Phone     phoneBody `json:"phone"`
	} `json:"payer"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

type searchBody struct {
	Results []paymentBody `json:"results"`
	Paging  struct {
		Total  int `json:"total"`
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	} `json:"paging"`
}

type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Status  int             `json:"status"`
	Cause   json.RawMessage `json:"cause"`
}

func (b paymentBody) toPayment() Payment {
	name := strings.TrimSpace(b.Payer.FirstName + " " + b.Payer.LastName)
	phone := b.Payer.Phone.Number
	if b.Payer.Phone.AreaCode != "" && phone != "" {
		phone = "(" + b.Payer.Phone.AreaCode + ")" + phone
	}
	var created time.Time
	for _, layout := range []string{"2006-01-02T15:04:05.000-07:00", time.RFC3339Nano} {
		if t, err := time.Parse(layout, b.DateCreated); err == nil {
			created = t
			break
		}
	}
	return Payment{
		ID:           b.ID.String(),
		Status:       strings.ToLower(b.Status),
		StatusDetail: b.StatusDetail,
		Amount:       b.TransactionAmount,
		Description:  b.Description,
		Method:       b.PaymentMethodID,
		Payer:        models.Client{Name: name, Phone: phone, Email: b.Payer.Email},
		DateCreated:  created,
		QRCode:       b.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64: b.PointOfInteraction.TransactionData.QRCodeBase64,
		TicketURL:    b.PointOfInteraction.TransactionData.TicketURL,
		ExternalRef:  b.ExternalReference,
	}
}

func payerFrom(c models.Client) payerBody {
	first, last := c.Name, ""
	if idx := strings.Index(strings.TrimSpace(c.Name), " "); idx > 0 {
		name := strings.TrimSpace(c.Name)
		first, last = name[:idx], strings.TrimSpace(name[idx+1:])
	}
	body := payerBody{Email: c.Email, FirstName: first, LastName: last}
	if area, number := splitPhone(c.Phone); number != "" {
		body.Phone = &phoneBody{AreaCode: area, Number: number}
	}
	return body
}

// splitPhone turns "(22)97402-9231" into area code "22" and number "974029231".
func splitPhone(raw string) (string, string) {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	if len(digits) > 2 && strings.HasPrefix(strings.TrimSpace(raw), "(") {
		return string(digits[:2]), string(digits[2:])
	}
	if len(digits) >= 10 {
		return string(digits[:2]), string(digits[2:])
	}
	return "", string(digits)
}
