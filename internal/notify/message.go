package notify

import (
	"bytes"
	"mime"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const precautions = "* Avoid outdoor activities\n" +
	"* Use N95 masks if needed\n" +
	"* Close windows & ventilators\n" +
	"* Keep children and elderly safe\n\n"

// Message is a composed alert email.
type Message struct {
	Subject string
	Body    string
}

// ComposeAlert builds the subject and plain-text body for an alert.
func ComposeAlert(city string, lines []string) Message {
	title := cases.Title(language.English).String(strings.TrimSpace(city))

	var body strings.Builder
	body.WriteString("🚨HIGH ALERT! Immediate health risk detected in ")
	body.WriteString(title)
	body.WriteString(":\n\n")
	body.WriteString(precautions)
	body.WriteString("Live pollutant levels:\n")
	body.WriteString(strings.Join(lines, "\n"))

	return Message{
		Subject: "🌫️ ECOWatch Alert - High Pollution in " + title,
		Body:    body.String(),
	}
}

// Bytes renders the message as an RFC 5322 document with CRLF line endings.
func (m Message) Bytes(from, to string, date time.Time) []byte {
	var b bytes.Buffer
	writeHeader(&b, "From", from)
	writeHeader(&b, "To", to)
	writeHeader(&b, "Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	writeHeader(&b, "Date", date.Format(time.RFC1123Z))
	writeHeader(&b, "MIME-Version", "1.0")
	writeHeader(&b, "Content-Type", "text/plain; charset=UTF-8")
	writeHeader(&b, "Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}

func writeHeader(b *bytes.Buffer, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}
