// Package ingest maps the many historical document and payload shapes onto the canonical
// models. Nothing downstream of this package branches on field naming.
package ingest

import (
	"regexp"
	"strings"
	"time"

	"agendamento-backend/internal/models"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
}

// NormalizeDate converts a stored or legacy date into YYYY-MM-DD.
func NormalizeDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format("2006-01-02"), true
	}
	return "", false
}

var hourOnly = regexp.MustCompile(`^\d{1,2}$`)

// NormalizeTime converts "9:00", "09:00:00", "9h" or "9h30" into HH:MM.
func NormalizeTime(raw string) (string, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", false
	}
	if idx := strings.Index(raw, "h"); idx > 0 {
		rest := strings.TrimSpace(raw[idx+1:])
		if rest == "" {
			rest = "00"
		}
		raw = raw[:idx] + ":" + rest
	} else if hourOnly.MatchString(raw) {
		raw += ":00"
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}

var statusAliases = map[string]string{
	models.AppointmentStatusConfirmed:       models.AppointmentStatusConfirmed,
	"confirmado":                            models.AppointmentStatusConfirmed,
	"agendado":                              models.AppointmentStatusConfirmed,
	"scheduled":                             models.AppointmentStatusConfirmed,
	"pago":                                  models.AppointmentStatusConfirmed,
	models.AppointmentStatusAwaitingPayment: models.AppointmentStatusAwaitingPayment,
	"aguardando-pagamento":                  models.AppointmentStatusAwaitingPayment,
	"aguardando_pagamento":                  models.AppointmentStatusAwaitingPayment,
	"pendente":                              models.AppointmentStatusAwaitingPayment,
	"pending":                               models.AppointmentStatusAwaitingPayment,
	models.AppointmentStatusCanceled:        models.AppointmentStatusCanceled,
	"cancelled":                             models.AppointmentStatusCanceled,
	"cancelado":                             models.AppointmentStatusCanceled,
	models.AppointmentStatusCompleted:       models.AppointmentStatusCompleted,
	"concluido":                             models.AppointmentStatusCompleted,
	"concluído":                             models.AppointmentStatusCompleted,
	"realizado":                             models.AppointmentStatusCompleted,
}

// NormalizeStatus resolves the canonical status and confirmed flag. The status string wins;
// the stored flag is consulted only when the status is missing or unknown.
func NormalizeStatus(raw string, flag bool, hasFlag bool) (string, bool) {
	if status, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return status, status == models.AppointmentStatusConfirmed || status == models.AppointmentStatusCompleted
	}
	if hasFlag && flag {
		return models.AppointmentStatusConfirmed, true
	}
	return models.AppointmentStatusAwaitingPayment, false
}

func NormalizePaymentMethod(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pix":
		return models.PaymentMethodPix
	case "cash", "dinheiro", "presencial", "local", "no-local":
		return models.PaymentMethodCash
	case "":
		return ""
	default:
		return models.PaymentMethodManual
	}
}

// ClientFrom extracts client data with a fixed precedence per field:
// client.*, cliente.*, cliente_*, client*, payer.*.
func ClientFrom(doc Doc, placeholderEmail string) models.Client {
	c := models.Client{
		Name:  FirstString(doc, "client.name", "cliente.nome", "cliente_nome", "clientName"),
		Phone: FirstString(doc, "client.phone", "cliente.telefone", "cliente_telefone", "clientPhone"),
		Email: FirstString(doc, "client.email", "cliente.email", "cliente_email", "clientEmail"),
	}
	if c.Name == "" {
		c.Name = strings.TrimSpace(FirstString(doc, "payer.first_name") + " " + FirstString(doc, "payer.last_name"))
	}
	if c.Name == "" {
		c.Name = FirstString(doc, "payer.name")
	}
	if c.Phone == "" {
		c.Phone = payerPhone(doc)
	}
	if c.Email == "" {
		c.Email = FirstString(doc, "payer.email")
	}
	if c.Email == "" {
		c.Email = placeholderEmail
	}
	return c
}

func payerPhone(doc Doc) string {
	number := FirstString(doc, "payer.phone.number")
	if number == "" {
		return FirstString(doc, "payer.phone")
	}
	if area := FirstString(doc, "payer.phone.area_code"); area != "" {
		return "(" + area + ")" + number
	}
	return number
}

// subClient reads a nested client object written in either Portuguese or English keys.
func subClient(v interface{}) *models.Client {
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	c := models.Client{
		Name:  FirstString(m, "nome", "name"),
		Phone: FirstString(m, "telefone", "phone"),
		Email: FirstString(m, "email"),
	}
	return &c
}

func dateField(doc Doc, paths ...string) string {
	raw := FirstString(doc, paths...)
	if d, ok := NormalizeDate(raw); ok {
		return d
	}
	return raw
}

func timeField(doc Doc, paths ...string) string {
	raw := FirstString(doc, paths...)
	if t, ok := NormalizeTime(raw); ok {
		return t
	}
	return raw
}

// Appointment translates a stored appointment of any generation into the canonical type.
func Appointment(doc Doc, placeholderEmail string) models.Appointment {
	flag, hasFlag := firstBool(doc, "confirmed", "confirmado")
	status, confirmed := NormalizeStatus(FirstString(doc, "status"), flag, hasFlag)
	price, _ := FirstFloat(doc, "price", "preco", "valor", "amount")

	return models.Appointment{
		ID:            FirstString(doc, "_id", "id"),
		Date:          dateField(doc, "date", "data"),
		Time:          timeField(doc, "time", "horario", "hora"),
		Service:       FirstString(doc, "service", "servico", "serviço"),
		Price:         price,
		Client:        ClientFrom(doc, placeholderEmail),
		Status:        status,
		Confirmed:     confirmed,
		PaymentMethod: NormalizePaymentMethod(FirstString(doc, "metodoPagamento", "paymentMethod", "metodo_pagamento")),
		PaymentID:     FirstString(doc, "paymentId", "pagamentoId", "payment_id"),
		Notes:         FirstString(doc, "notes", "observacoes"),
		CreatedAt:     firstTime(doc, "createdAt", "criadoEm", "created_at"),
		UpdatedAt:     firstTime(doc, "updatedAt", "atualizadoEm", "updated_at"),
	}
}

func Block(doc Doc) models.Block {
	return models.Block{
		ID:        FirstString(doc, "_id", "id"),
		Date:      dateField(doc, "date", "data"),
		Time:      timeField(doc, "time", "horario", "hora"),
		Reason:    FirstString(doc, "reason", "motivo"),
		CreatedAt: firstTime(doc, "createdAt", "criadoEm"),
	}
}

// Staged reads the *_temp fields of a payment record. It returns nil when no staged data is
// present at all; a present record with no client sub-object has Client == nil.
func Staged(doc Doc) *models.StagedBooking {
	date := FirstString(doc, "data_temp", "date_temp")
	tm := FirstString(doc, "horario_temp", "time_temp")
	service := FirstString(doc, "servico_temp", "service_temp")
	var client *models.Client
	if v, ok := Lookup(doc, "cliente_temp"); ok {
		client = subClient(v)
	} else if v, ok := Lookup(doc, "client_temp"); ok {
		client = subClient(v)
	}
	if date == "" && tm == "" && service == "" && client == nil {
		return nil
	}
	if d, ok := NormalizeDate(date); ok {
		date = d
	}
	if t, ok := NormalizeTime(tm); ok {
		tm = t
	}
	return &models.StagedBooking{Date: date, Time: tm, Service: service, Client: client}
}

func Payment(doc Doc) models.Payment {
	amount, _ := FirstFloat(doc, "amount", "transaction_amount")
	return models.Payment{
		ID:           FirstString(doc, "_id", "id"),
		Status:       strings.ToLower(FirstString(doc, "status")),
		StatusDetail: FirstString(doc, "statusDetail", "status_detail"),
		Amount:       amount,
		Description:  FirstString(doc, "description"),
		Method:       FirstString(doc, "method", "payment_method_id"),
		Payer:        ClientFrom(doc, ""),
		DateCreated:  firstTime(doc, "dateCreated", "date_created"),
		UpdatedAt:    firstTime(doc, "updatedAt"),
		Staged:       Staged(doc),
	}
}

// BookingPayload is a booking request after shape normalization and before validation.
type BookingPayload struct {
	Date          string
	Time          string
	Service       string
	Price         float64
	Client        models.Client
	PaymentMethod string
	Notes         string
}

// Booking maps any accepted request body shape onto BookingPayload. Date and time are passed
// through untouched so that validation sees exactly what the caller sent.
func Booking(doc Doc) BookingPayload {
	price, _ := FirstFloat(doc, "price", "preco", "valor", "amount")
	return BookingPayload{
		Date:          FirstString(doc, "date", "data"),
		Time:          FirstString(doc, "time", "horario", "hora"),
		Service:       FirstString(doc, "service", "servico"),
		Price:         price,
		Client:        ClientFrom(doc, ""),
		PaymentMethod: NormalizePaymentMethod(FirstString(doc, "paymentMethod", "metodoPagamento")),
		Notes:         FirstString(doc, "notes", "observacoes"),
	}
}
