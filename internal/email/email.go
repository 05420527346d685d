package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/glowdesk/teamchat/internal/logging"
)

type Sender struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func NewSender(host, port, username, password, from string) *Sender {
	return &Sender{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
	}
}

const inviteTemplate = `
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 5px; }
        .header { background-color: #6200ee; color: white; padding: 10px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { padding: 20px; }
        .footer { margin-top: 20px; font-size: 0.8em; color: #777; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Nuovo gruppo</h1>
        </div>
        <div class="content">
            <p>Ciao {{.Name}},</p>
            <p>Sei stato aggiunto al gruppo <strong>{{.Group}}</strong>. Apri la chat del team per partecipare alla conversazione.</p>
        </div>
        <div class="footer">
            <p>&copy; 2026 Glowdesk</p>
        </div>
    </div>
</body>
</html>
`

// SendGroupInvite notifies a member they were added to a group. With no
// SMTP host configured the mail is logged instead, for development.
func (s *Sender) SendGroupInvite(to, name, group string) error {
	t, err := template.New("invite").Parse(inviteTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, map[string]string{"Name": name, "Group": group}); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	headers := map[string]string{
		"From":         s.From,
		"To":           to,
		"Subject":      fmt.Sprintf("Sei stato aggiunto a %s", group),
		"MIME-Version": "1.0",
		"Content-Type": `text/html; charset="UTF-8"`,
	}

	message := ""
	for k, v := range headers {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body.String()

	if s.Host == "" {
		logging.L().Info().Str("to", to).Str("group", group).Msg("mock invite email")
		return nil
	}

	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)
	return smtp.SendMail(addr, auth, s.From, []string{to}, []byte(message))
}
