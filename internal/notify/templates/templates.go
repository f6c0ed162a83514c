// Package templates renders the studio's transactional emails. Each builder
// returns subject, HTML and plain-text bodies from display-ready data; no
// pricing or fallback logic lives here.
package templates

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/studioxv/booking-platform/internal/notify"
)

// Rendered is a fully built email ready to hand to a sender.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

const bookingDetailsHTML = `
<table style="border-collapse:collapse;width:100%;max-width:480px">
  <tr><td style="padding:6px 12px;color:#666">Service</td><td style="padding:6px 12px"><strong>{{.Service}}</strong></td></tr>
  <tr><td style="padding:6px 12px;color:#666">Session</td><td style="padding:6px 12px">{{.PackageName}}</td></tr>
  <tr><td style="padding:6px 12px;color:#666">Duration</td><td style="padding:6px 12px">{{.Duration}}</td></tr>
  {{if .Addons}}<tr><td style="padding:6px 12px;color:#666">Add-ons</td><td style="padding:6px 12px">{{.Addons}}</td></tr>{{end}}
  <tr><td style="padding:6px 12px;color:#666">Date</td><td style="padding:6px 12px">{{.SessionDate}}</td></tr>
  <tr><td style="padding:6px 12px;color:#666">Time</td><td style="padding:6px 12px">{{.SessionTime}}</td></tr>
  <tr><td style="padding:6px 12px;color:#666">Total</td><td style="padding:6px 12px">{{.TotalPrice}}</td></tr>
  <tr><td style="padding:6px 12px;color:#666">Paid</td><td style="padding:6px 12px">{{.DepositPaid}}</td></tr>
  {{if .OwesBalance}}<tr><td style="padding:6px 12px;color:#666">Balance due</td><td style="padding:6px 12px"><strong>{{.BalanceDue}}</strong></td></tr>{{end}}
</table>`

var (
	fullPaymentHTML = mustHTML("full_payment", `
<p>Hi {{.CustomerName}},</p>
<p>Your booking at Studio XV is confirmed and paid in full. We look forward to seeing you.</p>
`+bookingDetailsHTML+`
{{if .PromoCode}}<p>Promo code applied: <strong>{{.PromoCode}}</strong></p>{{end}}
<p>If you need to reschedule, just reply to this email.</p>
<p>Studio XV</p>`)

	depositPaidHTML = mustHTML("deposit_paid", `
<p>Hi {{.CustomerName}},</p>
<p>Thanks for your deposit. Your booking at Studio XV is confirmed.</p>
`+bookingDetailsHTML+`
{{if .PaymentLink}}<p>You can settle the remaining balance any time before your session:<br>
<a href="{{.PaymentLink}}">Pay remaining balance</a></p>{{end}}
<p>If you need to reschedule, just reply to this email.</p>
<p>Studio XV</p>`)

	reminder24hHTML = mustHTML("reminder_24h", `
<p>Hi {{.CustomerName}},</p>
<p>A quick reminder that your {{.Service}} session at Studio XV is tomorrow.</p>
`+bookingDetailsHTML+`
{{if .OwesBalance}}<p>Your remaining balance of <strong>{{.BalanceDue}}</strong> is due on arrival.
{{if .PaymentLink}}You can also <a href="{{.PaymentLink}}">pay it now</a>.{{end}}</p>{{end}}
<p>See you soon,<br>Studio XV</p>`)

	reminder2hHTML = mustHTML("reminder_2h", `
<p>Hi {{.CustomerName}},</p>
<p>Your {{.Service}} session at Studio XV starts at {{.SessionTime}} today. See you shortly!</p>
{{if .OwesBalance}}<p>Reminder: your remaining balance is <strong>{{.BalanceDue}}</strong>.</p>{{end}}
<p>Studio XV</p>`)

	startPaymentHTML = mustHTML("start_payment", `
<p>Hi {{.CustomerName}},</p>
<p>Your session is starting and there is a remaining balance of <strong>{{.BalanceDue}}</strong> on your booking.</p>
{{if .PaymentLink}}<p><a href="{{.PaymentLink}}">Pay the balance now</a></p>{{end}}
<p>Thanks,<br>Studio XV</p>`)

	postSessionHTML = mustHTML("post_session_balance", `
<p>Hi {{.CustomerName}},</p>
<p>Thanks for coming in yesterday! We hope the {{.Service}} session went brilliantly.</p>
<p>Our records show a remaining balance of <strong>{{.BalanceDue}}</strong> on your booking.</p>
{{if .PaymentLink}}<p><a href="{{.PaymentLink}}">Settle the balance</a></p>{{end}}
<p>If you have already paid, please ignore this email.</p>
<p>Studio XV</p>`)
)

// BookingConfirmation builds the confirmation email, choosing the deposit
// or paid-in-full wording from the booking's email type.
func BookingConfirmation(d notify.EmailData) (Rendered, error) {
	tmpl := depositPaidHTML
	subject := fmt.Sprintf("Deposit received: your %s session at Studio XV", d.Service)
	if d.EmailType == "full_payment" {
		tmpl = fullPaymentHTML
		subject = fmt.Sprintf("Booking confirmed: your %s session at Studio XV", d.Service)
	}
	html, err := renderHTML(tmpl, d)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{
		Subject: subject,
		HTML:    html,
		Text: fmt.Sprintf("Hi %s, your %s booking at Studio XV is confirmed for %s at %s. Total %s, paid %s, balance due %s.",
			d.CustomerName, d.Service, d.SessionDate, d.SessionTime, d.TotalPrice, d.AmountPaid, d.BalanceDue),
	}, nil
}

// SessionReminder builds the 24 hour or 2 hour reminder.
func SessionReminder(d notify.EmailData, tomorrow bool) (Rendered, error) {
	tmpl := reminder2hHTML
	subject := fmt.Sprintf("See you at %s today, %s", d.SessionTime, d.CustomerName)
	if tomorrow {
		tmpl = reminder24hHTML
		subject = fmt.Sprintf("Your %s session at Studio XV is tomorrow", d.Service)
	}
	html, err := renderHTML(tmpl, d)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{
		Subject: subject,
		HTML:    html,
		Text: fmt.Sprintf("Hi %s, reminder: your %s session at Studio XV is on %s at %s.",
			d.CustomerName, d.Service, d.SessionDate, d.SessionTime),
	}, nil
}

// BalancePaymentReminder builds the session-start nudge for an unpaid balance.
func BalancePaymentReminder(d notify.EmailData) (Rendered, error) {
	html, err := renderHTML(startPaymentHTML, d)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{
		Subject: fmt.Sprintf("Balance of %s due for today's session", d.BalanceDue),
		HTML:    html,
		Text: fmt.Sprintf("Hi %s, your session is starting and a balance of %s remains. %s",
			d.CustomerName, d.BalanceDue, d.PaymentLink),
	}, nil
}

// PostSessionBalanceReminder builds the day-after chase for a balance that
// was never settled.
func PostSessionBalanceReminder(d notify.EmailData) (Rendered, error) {
	html, err := renderHTML(postSessionHTML, d)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{
		Subject: fmt.Sprintf("Outstanding balance of %s on your Studio XV booking", d.BalanceDue),
		HTML:    html,
		Text: fmt.Sprintf("Hi %s, thanks for coming in yesterday. A balance of %s remains on your booking. %s",
			d.CustomerName, d.BalanceDue, d.PaymentLink),
	}, nil
}

// CartItem is one purchased line in an order confirmation.
type CartItem struct {
	Name  string
	Price string
}

// CartData feeds the order confirmation email.
type CartData struct {
	CustomerName  string
	CustomerEmail string
	Items         []CartItem
	Subtotal      string
	Discount      string
	HasDiscount   bool
	PromoCode     string
	Total         string
}

var cartHTML = mustHTML("cart_confirmation", `
<p>Hi {{.CustomerName}},</p>
<p>Thanks for your order with Studio XV. Here is what you bought:</p>
<table style="border-collapse:collapse;width:100%;max-width:480px">
  {{range .Items}}<tr><td style="padding:6px 12px">{{.Name}}</td><td style="padding:6px 12px;text-align:right">{{.Price}}</td></tr>{{end}}
  <tr><td style="padding:6px 12px;color:#666">Subtotal</td><td style="padding:6px 12px;text-align:right">{{.Subtotal}}</td></tr>
  {{if .HasDiscount}}<tr><td style="padding:6px 12px;color:#666">Discount{{if .PromoCode}} ({{.PromoCode}}){{end}}</td><td style="padding:6px 12px;text-align:right">-{{.Discount}}</td></tr>{{end}}
  <tr><td style="padding:6px 12px;color:#666">Total</td><td style="padding:6px 12px;text-align:right"><strong>{{.Total}}</strong></td></tr>
</table>
<p>Your course access details follow in a separate email.</p>
<p>Studio XV</p>`)

// CartConfirmation builds the order confirmation for course/ebook purchases.
func CartConfirmation(d CartData) (Rendered, error) {
	html, err := renderHTML(cartHTML, d)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{
		Subject: "Your Studio XV order confirmation",
		HTML:    html,
		Text:    fmt.Sprintf("Hi %s, thanks for your order with Studio XV. Order total: %s.", d.CustomerName, d.Total),
	}, nil
}

var adminAlertText = texttemplate.Must(texttemplate.New("admin_alert").Option("missingkey=error").Parse(
	`New booking paid via Stripe.

Booking:  {{.BookingID}}
Customer: {{.CustomerName}} <{{.CustomerEmail}}>
Service:  {{.Service}} ({{.PackageName}}, {{.Duration}})
Session:  {{.SessionDate}} at {{.SessionTime}}
Total:    {{.TotalPrice}}
Paid:     {{.AmountPaid}}
Balance:  {{.BalanceDue}}
`))

// AdminBookingAlert builds the internal heads-up sent to the studio inbox
// whenever a booking is persisted.
func AdminBookingAlert(d notify.EmailData) (Rendered, error) {
	var buf bytes.Buffer
	if err := adminAlertText.Execute(&buf, d); err != nil {
		return Rendered{}, fmt.Errorf("templates: execute admin alert: %w", err)
	}
	return Rendered{
		Subject: fmt.Sprintf("New booking: %s on %s", d.Service, d.SessionDate),
		Text:    buf.String(),
	}, nil
}

// EnquiryData feeds the studio-facing enquiry notification.
type EnquiryData struct {
	Name    string
	Email   string
	Phone   string
	Service string
	Budget  string
	Message string
}

var enquiryText = texttemplate.Must(texttemplate.New("enquiry").Option("missingkey=error").Parse(
	`New enquiry via the website.

Name:    {{.Name}}
Email:   {{.Email}}
Phone:   {{.Phone}}
Service: {{.Service}}
Budget:  {{.Budget}}

{{.Message}}
`))

// EnquiryNotification builds the plain-text email forwarded to the studio.
func EnquiryNotification(d EnquiryData) (Rendered, error) {
	var buf bytes.Buffer
	if err := enquiryText.Execute(&buf, d); err != nil {
		return Rendered{}, fmt.Errorf("templates: execute enquiry: %w", err)
	}
	return Rendered{
		Subject: fmt.Sprintf("New enquiry from %s", d.Name),
		Text:    buf.String(),
	}, nil
}

var enquiryReplyHTML = mustHTML("enquiry_reply", `
<p>Hi {{.Name}},</p>
<p>Thanks for getting in touch about a {{.Service}} session at Studio XV.
We have your enquiry and will come back to you within one working day.</p>
<p>In the meantime, feel free to reply to this email with links to your
music or anything else that helps us prepare.</p>
<p>Studio XV</p>`)

// EnquiryAutoReply builds the customer-facing acknowledgement.
func EnquiryAutoReply(d EnquiryData) (Rendered, error) {
	html, err := renderHTML(enquiryReplyHTML, d)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{
		Subject: "We got your enquiry - Studio XV",
		HTML:    html,
		Text: fmt.Sprintf("Hi %s, thanks for getting in touch about a %s session at Studio XV. We will come back to you within one working day.",
			d.Name, d.Service),
	}, nil
}

func mustHTML(name, text string) *htmltemplate.Template {
	return htmltemplate.Must(htmltemplate.New(name).Option("missingkey=error").Parse(text))
}

func renderHTML(t *htmltemplate.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: execute %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
