package mail

import (
	"bytes"
	"html/template"
)

var verificationTmpl = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Welcome, {{.Name}}!</h2>
  <p>Please confirm your email address to activate your barangay services account.</p>
  <p><a href="{{.Link}}" style="background:#1e6bd6;color:#fff;padding:10px 18px;text-decoration:none;border-radius:4px;">Verify Email</a></p>
  <p>This link expires in 24 hours. If you did not create an account you can ignore this message.</p>
</body>
</html>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Password reset</h2>
  <p>Hello {{.Name}}, we received a request to reset your password.</p>
  <p><a href="{{.Link}}" style="background:#1e6bd6;color:#fff;padding:10px 18px;text-decoration:none;border-radius:4px;">Reset Password</a></p>
  <p>This link expires in 1 hour. If you did not request a reset, no action is needed.</p>
</body>
</html>`))

// Subjects for the account emails
const (
	SubjectVerification  = "Verify your email address"
	SubjectPasswordReset = "Reset your password"
)

type linkData struct {
	Name string
	Link string
}

// RenderVerification renders the email verification message
func RenderVerification(name, link string) (string, error) {
	return render(verificationTmpl, linkData{Name: name, Link: link})
}

// RenderPasswordReset renders the password reset message
func RenderPasswordReset(name, link string) (string, error) {
	return render(resetTmpl, linkData{Name: name, Link: link})
}

func render(t *template.Template, data linkData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
