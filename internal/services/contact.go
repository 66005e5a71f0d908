package services

import (
	"context"
	"strings"

	"github.com/devfolio/portfolio/internal/metrics"
	"github.com/rs/zerolog"
)

// Contact form names used in logs and metrics.
const (
	FormContact     = "contact"
	FormSendMessage = "send-message"
)

// ContactMessage is a visitor message from one of the contact forms.
type ContactMessage struct {
	Form    string
	Name    string
	Email   string
	Message string
}

// ContactService records visitor messages. Messages are logged only.
type ContactService struct {
	log zerolog.Logger
}

func NewContactService(log zerolog.Logger) *ContactService {
	return &ContactService{log: log}
}

func (s *ContactService) Submit(ctx context.Context, msg ContactMessage) error {
	form := msg.Form
	if form == "" {
		form = FormContact
	}
	metrics.ContactMessagesTotal.WithLabelValues(form).Inc()
	s.log.Info().
		Str("form", form).
		Str("name", strings.TrimSpace(msg.Name)).
		Str("email", strings.TrimSpace(msg.Email)).
		Str("message", msg.Message).
		Msg("contact message received")
	return nil
}
