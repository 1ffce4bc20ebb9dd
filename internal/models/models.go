package models

import "time"

const (
	AppointmentStatusAwaitingPayment = "awaiting-payment"
	AppointmentStatusConfirmed       = "confirmed"
	AppointmentStatusCanceled        = "canceled"
	AppointmentStatusCompleted       = "completed"

	PaymentMethodPix    = "pix"
	PaymentMethodCash   = "cash"
	PaymentMethodManual = "manual"

	UserRoleAdmin = "admin"
)

// Gateway payment statuses.
const (
	PaymentStatusApproved    = "approved"
	PaymentStatusPending     = "pending"
	PaymentStatusInProcess   = "in_process"
	PaymentStatusRejected    = "rejected"
	PaymentStatusCancelled   = "cancelled"
	PaymentStatusRefunded    = "refunded"
	PaymentStatusChargedBack = "charged_back"
)

type Client struct {
	Name  string `bson:"name" json:"name"`
	Phone string `bson:"phone" json:"phone"`
	Email string `bson:"email" json:"email"`
}

type Appointment struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	Date          string    `bson:"date" json:"date"`
	Time          string    `bson:"time" json:"time"`
	Service       string    `bson:"service" json:"service"`
	Price         float64   `bson:"price" json:"price"`
	Client        Client    `bson:"client" json:"client"`
	Status        string    `bson:"status" json:"status"`
	Confirmed     bool      `bson:"confirmed" json:"confirmed"`
	PaymentMethod string    `bson:"metodoPagamento" json:"metodoPagamento"`
	PaymentID     string    `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	Notes         string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Occupies reports whether the appointment holds its (date, time) slot.
func (a Appointment) Occupies() bool {
	return a.Confirmed && a.Status != AppointmentStatusCanceled
}

type Block struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Date      string    `bson:"date" json:"date"`
	Time      string    `bson:"time" json:"time"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// StagedBooking is the appointment payload held on a payment until the gateway approves it.
type StagedBooking struct {
	Date    string  `json:"date"`
	Time    string  `json:"time"`
	Service string  `json:"service"`
	Client  *Client `json:"client,omitempty"`
}

type Payment struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	StatusDetail string         `json:"statusDetail,omitempty"`
	Amount       float64        `json:"amount"`
	Description  string         `json:"description"`
	Method       string         `json:"method"`
	Payer        Client         `json:"payer"`
	DateCreated  time.Time      `json:"dateCreated"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	Staged       *StagedBooking `json:"staged,omitempty"`
}

type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Username     string    `bson:"username" json:"username"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	Role         string    `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
