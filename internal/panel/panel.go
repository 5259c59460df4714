// Package panel renders the browser-facing dashboard. It is a thin
// presentation layer over the structured contact and message data the
// conversation service produces.
package panel

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"colegiobot/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const timeFormat = "2006-01-02 15:04"

// Renderer renders contact and conversation pages. Timestamps are shown
// in the configured display timezone.
type Renderer struct {
	templates  *template.Template
	schoolName string
	location   *time.Location
}

func NewRenderer(schoolName, timezone string) (*Renderer, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Renderer{
		templates:  templates,
		schoolName: schoolName,
		location:   location,
	}, nil
}

type contactRow struct {
	Phone        string
	Status       models.ContactStatus
	MessageCount int64
	LastContact  string
}

type contactsPage struct {
	SchoolName string
	Contacts   []contactRow
	Page       int
	PrevPage   int
	NextPage   int
	Limit      int
	HasMore    bool
}

// RenderContacts writes the paginated contact listing.
func (r *Renderer) RenderContacts(w io.Writer, page *models.ContactPage) error {
	rows := make([]contactRow, 0, len(page.Contacts))
	for _, contact := range page.Contacts {
		rows = append(rows, contactRow{
			Phone:        contact.Phone,
			Status:       contact.Status,
			MessageCount: contact.MessageCount,
			LastContact:  contact.LastContactAt.In(r.location).Format(timeFormat),
		})
	}

	return r.templates.ExecuteTemplate(w, "contacts.html", contactsPage{
		SchoolName: r.schoolName,
		Contacts:   rows,
		Page:       page.Page,
		PrevPage:   page.Page - 1,
		NextPage:   page.Page + 1,
		Limit:      page.Limit,
		HasMore:    page.HasMore,
	})
}

type messageRow struct {
	Direction models.Direction
	Body      string
	SentAt    string
}

type conversationPage struct {
	SchoolName   string
	Phone        string
	Status       models.ContactStatus
	MessageCount int64
	Messages     []messageRow
}

// RenderConversation writes a single conversation view.
func (r *Renderer) RenderConversation(w io.Writer, conv *models.Conversation) error {
	rows := make([]messageRow, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		rows = append(rows, messageRow{
			Direction: msg.Direction,
			Body:      msg.Body,
			SentAt:    msg.CreatedAt.In(r.location).Format(timeFormat),
		})
	}

	return r.templates.ExecuteTemplate(w, "conversation.html", conversationPage{
		SchoolName:   r.schoolName,
		Phone:        conv.Contact.Phone,
		Status:       conv.Contact.Status,
		MessageCount: conv.Contact.MessageCount,
		Messages:     rows,
	})
}
