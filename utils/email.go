package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
)

type EmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

const verificationEmailTemplate = `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px;">
    <tr>
      <td style="padding: 40px;">
        <h2 style="margin: 0 0 20px 0; color: #1f2937;">Welcome to Expense Tracker, {{.Name}}</h2>
        <p style="margin: 0 0 20px 0; color: #4b5563; line-height: 1.6;">
          Confirm your email address to finish setting up your account.
        </p>
        <a href="{{.VerifyLink}}" style="display: inline-block; padding: 12px 24px; background-color: #4f46e5; color: #ffffff; border-radius: 8px; text-decoration: none;">
          Verify email
        </a>
        <p style="margin: 20px 0 0 0; color: #9ca3af; font-size: 12px;">
          If you did not create this account you can ignore this email.
        </p>
      </td>
    </tr>
  </table>
</body>
</html>`

// SendVerificationEmail sends the signup confirmation email. Failure is not
// fatal to signup; callers log and continue.
func SendVerificationEmail(toEmail, userName, token string) error {
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	data := struct {
		Name       string
		VerifyLink string
	}{
		Name:       userName,
		VerifyLink: fmt.Sprintf("%s/verify?token=%s", frontendURL, token),
	}

	tmpl, err := template.New("verification").Parse(verificationEmailTemplate)
	if err != nil {
		log.Printf("❌ Error parsing verification template: %v", err)
		return err
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		log.Printf("❌ Error executing verification template: %v", err)
		return err
	}

	return sendEmail(toEmail, "Verify your Expense Tracker account", body.String())
}

func sendEmail(to, subject, htmlBody string) error {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		log.Println("⚠️ RESEND_API_KEY not set, email not sent")
		return fmt.Errorf("RESEND_API_KEY not set")
	}

	fromEmail := os.Getenv("FROM_EMAIL")
	if fromEmail == "" {
		fromEmail = "Expense Tracker <noreply@localhost>"
	}

	emailReq := EmailRequest{
		From:    fromEmail,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	}

	jsonData, err := json.Marshal(emailReq)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("❌ Error sending email: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("email API returned status: %d", resp.StatusCode)
	}

	return nil
}
