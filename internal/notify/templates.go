package notify

import (
	"fmt"
	"strings"
)

// AppointmentDetails feeds the confirmation template.
type AppointmentDetails struct {
	PatientName string
	Service     string
	Date        string
	Time        string
	Location    string
}

// AppointmentConfirmation builds the booking confirmation email.
func AppointmentConfirmation(to string, d AppointmentDetails) EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n", d.PatientName)
	fmt.Fprintf(&b, "Su cita ha sido confirmada.\n\n")
	fmt.Fprintf(&b, "Servicio: %s\n", d.Service)
	fmt.Fprintf(&b, "Fecha: %s\n", d.Date)
	fmt.Fprintf(&b, "Hora: %s\n", d.Time)
	fmt.Fprintf(&b, "Sede: %s\n\n", d.Location)
	b.WriteString("Por favor llegue 10 minutos antes de su cita. Si necesita reprogramar, contáctenos con anticipación.\n")

	return EmailMessage{
		To:      to,
		ToName:  d.PatientName,
		Subject: fmt.Sprintf("Cita confirmada — %s %s", d.Date, d.Time),
		Body:    b.String(),
	}
}

// ResultsReady builds the notification sent when a lab report is
// released to the patient portal.
func ResultsReady(to, patientName, orderCode, portalURL string) EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n", patientName)
	fmt.Fprintf(&b, "Los resultados de su orden %s ya están disponibles.\n\n", orderCode)
	if portalURL != "" {
		fmt.Fprintf(&b, "Puede consultarlos en el portal de pacientes: %s\n\n", portalURL)
	}
	b.WriteString("Si tiene preguntas sobre su informe, consulte a su médico tratante.\n")

	return EmailMessage{
		To:      to,
		ToName:  patientName,
		Subject: fmt.Sprintf("Resultados disponibles — orden %s", orderCode),
		Body:    b.String(),
	}
}
