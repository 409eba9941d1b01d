package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Enqueuer accepts messages for asynchronous delivery.
type Enqueuer interface {
	Enqueue(msg Message) error
}

// Notifier renders the invitation and password reset emails and queues them.
type Notifier struct {
	queue     Enqueuer
	publicURL string
	location  *time.Location
}

// NewNotifier returns a Notifier whose links point at publicURL. Expiry
// times are formatted in location.
func NewNotifier(queue Enqueuer, publicURL string, location *time.Location) *Notifier {
	if location == nil {
		location = time.UTC
	}
	return &Notifier{
		queue:     queue,
		publicURL: strings.TrimRight(publicURL, "/"),
		location:  location,
	}
}

// SendInvitation queues the invitation email for email.
func (n *Notifier) SendInvitation(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := n.link("/cadastro", token)
	body := fmt.Sprintf(`Olá!

Você foi convidado para a Galera do Vôlei.
Para criar sua conta, acesse o link abaixo:

%s

Seu código de convite é: %s
O convite expira em %s.
`, link, token, n.formatTime(expiresAt))

	return n.queue.Enqueue(Message{
		To:      email,
		Subject: "Convite para a Galera do Vôlei",
		Body:    body,
	})
}

// SendPasswordReset queues the password reset email for email.
func (n *Notifier) SendPasswordReset(ctx context.Context, email, name, token string, expiresAt time.Time) error {
	greeting := "Olá!"
	if name = strings.TrimSpace(name); name != "" {
		greeting = fmt.Sprintf("Olá, %s!", name)
	}
	link := n.link("/redefinir-senha", token)
	body := fmt.Sprintf(`%s

Recebemos um pedido para redefinir sua senha.
Use o link abaixo para escolher uma nova senha:

%s

O link expira em %s. Se você não fez este pedido, ignore este email.
`, greeting, link, n.formatTime(expiresAt))

	return n.queue.Enqueue(Message{
		To:      email,
		Subject: "Redefinição de senha - Galera do Vôlei",
		Body:    body,
	})
}

func (n *Notifier) link(path, token string) string {
	return n.publicURL + path + "?token=" + url.QueryEscape(token)
}

func (n *Notifier) formatTime(t time.Time) string {
	return t.In(n.location).Format("02/01/2006 às 15:04")
}
