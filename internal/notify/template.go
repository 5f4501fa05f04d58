package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/remindkit/go-reminder-backend/internal/domain"
)

// Render builds the outgoing message for a reminder. Caller-supplied
// email_subject/email_body override the generated content; otherwise the
// subject is "Reminder: <title>" and the body is assembled from the title,
// description and target date.
func Render(r *domain.Reminder, recipient string) Message {
	subject := "Reminder: " + r.Title
	if r.EmailSubject != nil && *r.EmailSubject != "" {
		subject = *r.EmailSubject
	}

	body := ""
	if r.EmailBody != nil && *r.EmailBody != "" {
		body = *r.EmailBody
	} else {
		body = defaultBody(r)
	}

	return Message{Recipient: recipient, Subject: subject, Body: body}
}

func defaultBody(r *domain.Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This is a reminder about: %s\n", r.Title)
	if r.Description != "" {
		b.WriteString("\n")
		b.WriteString(r.Description)
		b.WriteString("\n")
	}
	if r.TargetDate != nil {
		fmt.Fprintf(&b, "\nTarget date: %s\n", r.TargetDate.Format(time.DateOnly))
	}
	return b.String()
}
