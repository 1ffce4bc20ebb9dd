package store

import (
	"agendamento-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

var legacyAppointmentFields = []string{
	"data", "horario", "hora", "servico", "preco", "valor", "confirmado",
	"cliente", "cliente_nome", "cliente_telefone", "cliente_email",
	"clientName", "clientPhone", "clientEmail", "paymentMethod", "pagamentoId",
}

var stagedFields = []string{
	"data_temp", "horario_temp", "servico_temp", "cliente_temp",
	"date_temp", "time_temp", "service_temp", "client_temp",
}

func clientDoc(c models.Client) bson.M {
	return bson.M{"name": c.Name, "phone": c.Phone, "email": c.Email}
}

// appointmentSet is the $set body for an appointment; createdAt is left to $setOnInsert.
func appointmentSet(a models.Appointment) bson.M {
	set := bson.M{
		"date":            a.Date,
		"time":            a.Time,
		"service":         a.Service,
		"price":           a.Price,
		"client":          clientDoc(a.Client),
		"status":          a.Status,
		"confirmed":       a.Confirmed,
		"metodoPagamento": a.PaymentMethod,
		"updatedAt":       a.UpdatedAt,
	}
	if a.PaymentID != "" {
		set["paymentId"] = a.PaymentID
	}
	if a.Notes != "" {
		set["notes"] = a.Notes
	}
	return set
}

func appointmentDoc(a models.Appointment) bson.M {
	doc := appointmentSet(a)
	doc["_id"] = a.ID
	doc["createdAt"] = a.CreatedAt
	return doc
}

func blockDoc(b models.Block) bson.M {
	doc := bson.M{
		"_id":       b.ID,
		"date":      b.Date,
		"time":      b.Time,
		"createdAt": b.CreatedAt,
	}
	if b.Reason != "" {
		doc["reason"] = b.Reason
	}
	return doc
}

// paymentSet is the gateway-owned part of a payment record.
func paymentSet(p models.Payment) bson.M {
	set := bson.M{
		"status":    p.Status,
		"amount":    p.Amount,
		"updatedAt": p.UpdatedAt,
	}
	if p.StatusDetail != "" {
		set["statusDetail"] = p.StatusDetail
	}
	if p.Description != "" {
		set["description"] = p.Description
	}
	if p.Method != "" {
		set["method"] = p.Method
	}
	if p.Payer != (models.Client{}) {
		set["payer"] = clientDoc(p.Payer)
	}
	if !p.DateCreated.IsZero() {
		set["dateCreated"] = p.DateCreated
	}
	return set
}

func paymentDoc(p models.Payment) bson.M {
	doc := paymentSet(p)
	doc["_id"] = p.ID
	if s := p.Staged; s != nil {
		doc["data_temp"] = s.Date
		doc["horario_temp"] = s.Time
		doc["servico_temp"] = s.Service
		if s.Client != nil {
			doc["cliente_temp"] = bson.M{
				"nome":     s.Client.Name,
				"telefone": s.Client.Phone,
				"email":    s.Client.Email,
			}
		}
	}
	return doc
}

func unsetFields(fields []string) bson.M {
	unset := bson.M{}
	for _, f := range fields {
		unset[f] = ""
	}
	return unset
}
