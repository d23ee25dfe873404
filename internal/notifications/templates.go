package notifications

import (
	"bytes"
	"html/template"
)

const appointmentDecisionTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hello {{.Name}},</p>
  {{if .Confirmed}}
  <p>The appointment below has been confirmed by the doctor.</p>
  {{else}}
  <p>Unfortunately the appointment below was declined by the doctor.</p>
  {{end}}
  <ul>
    <li>Doctor: {{.DoctorName}}</li>
    <li>Specialty: {{.Specialty}}</li>
    <li>Date: {{.Date}}</li>
    <li>Time: {{.Slot}}</li>
    {{if .Symptom}}<li>Reported symptom: {{.Symptom}}</li>{{end}}
    {{if .Note}}<li>Doctor note: {{.Note}}</li>{{end}}
    <li>Booking reference: {{.AppointmentID}}</li>
  </ul>
  <p>Thank you for using TalkToDoc.</p>
</body>
</html>`

var appointmentDecisionTmpl = template.Must(template.New("appointment_decision").Parse(appointmentDecisionTemplate))

// AppointmentDecisionData feeds the confirmation/rejection email. Symptom is
// the one value pulled out of the free-form medical form; nothing else in
// that map is interpreted.
type AppointmentDecisionData struct {
	Name          string
	DoctorName    string
	Specialty     string
	Date          string
	Slot          string
	Symptom       string
	Note          string
	AppointmentID string
	Confirmed     bool
}

func BuildAppointmentDecisionHTML(data AppointmentDecisionData) (string, error) {
	var buf bytes.Buffer
	if err := appointmentDecisionTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const otpTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hello {{.Name}},</p>
  <p>Your verification code is <strong>{{.Code}}</strong>.</p>
  <p>It expires in {{.TTLMinutes}} minutes. If you did not request it, ignore this email.</p>
</body>
</html>`

var otpTmpl = template.Must(template.New("otp").Parse(otpTemplate))

type OTPData struct {
	Name       string
	Code       string
	TTLMinutes int
}

func BuildOTPHTML(data OTPData) (string, error) {
	var buf bytes.Buffer
	if err := otpTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
