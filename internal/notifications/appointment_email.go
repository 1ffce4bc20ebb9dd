package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"agendamento-backend/internal/models"
)

const appointmentConfirmationTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Olá {{.Name}},</p>
  <p>Seu agendamento está confirmado:</p>
  <ul>
    <li>Serviço: {{.Service}}</li>
    <li>Data: {{.Date}}</li>
    <li>Horário: {{.Time}}</li>
    <li>Pagamento: {{.PaymentLabel}}</li>
    <li>Valor: {{.Price}}</li>
    <li>Código: {{.AppointmentID}}</li>
  </ul>
  <p>Até breve!</p>
</body>
</html>`

var appointmentConfirmationTmpl = template.Must(template.New("appointment_confirmation").Parse(appointmentConfirmationTemplate))

type appointmentConfirmationData struct {
	Name          string
	Service       string
	Date          string
	Time          string
	PaymentLabel  string
	Price         string
	AppointmentID string
}

func buildAppointmentConfirmationHTML(appointment models.Appointment) (string, error) {
	data := appointmentConfirmationData{
		Name:          appointment.Client.Name,
		Service:       appointment.Service,
		Date:          displayDate(appointment.Date),
		Time:          appointment.Time,
		PaymentLabel:  paymentMethodLabel(appointment.PaymentMethod),
		Price:         formatBRL(appointment.Price),
		AppointmentID: appointment.ID,
	}
	var buf bytes.Buffer
	if err := appointmentConfirmationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// displayDate turns 2025-03-11 into 11/03/2025.
func displayDate(value string) string {
	parts := strings.Split(value, "-")
	if len(parts) != 3 {
		return value
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}

func formatBRL(value float64) string {
	return "R$ " + strings.Replace(fmt.Sprintf("%.2f", value), ".", ",", 1)
}

func paymentMethodLabel(value string) string {
	switch value {
	case models.PaymentMethodPix:
		return "PIX"
	case models.PaymentMethodCash:
		return "No local"
	case models.PaymentMethodManual:
		return "Registrado pelo salão"
	default:
		return value
	}
}
