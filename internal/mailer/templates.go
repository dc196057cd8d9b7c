package mailer

const baseStyle = `
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1F2A44; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background: linear-gradient(135deg, #1F2A44 0%, #FF6F61 100%); color: white; padding: 30px; text-align: center; border-radius: 12px 12px 0 0; }
.content { background: #F9F5EF; padding: 30px; border-radius: 0 0 12px 12px; }
.services { background: white; padding: 20px; border-radius: 8px; margin: 20px 0; }
.footer { text-align: center; margin-top: 30px; color: #8B8B8B; font-size: 14px; }
.button { display: inline-block; background: #FF6F61; color: white; padding: 12px 24px; text-decoration: none; border-radius: 25px; margin: 10px 5px; font-weight: bold; }
.paid-notice { background: #e8f5e8; border: 1px solid #4caf50; border-radius: 8px; padding: 20px; margin: 20px 0; }
.urgent { background: #fff3cd; border: 1px solid #ffc107; border-radius: 8px; padding: 20px; margin: 20px 0; }
.photo { margin: 20px 0; padding: 20px; background: white; border-radius: 8px; text-align: center; }
`

const deliveryTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Your Revived Photos - {{.Brand}}</title>
<style>{{.Style}}</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Your Photos Have Been Revived!</h1>
    <p>{{.Brand}} - AI-Powered Photo Restoration</p>
  </div>
  <div class="content">
    <h2>Hello!</h2>
    <p>Your photos have been restored. The results are below.</p>
    {{if .Paid}}
    <div class="paid-notice">
      <h3>Payment Confirmed</h3>
      <p><strong>Thank you for your purchase!</strong> Your payment has been processed successfully.</p>
      <p><strong>Payment ID:</strong> {{.PaymentIntentID}}</p>
      <p><strong>Amount:</strong> {{.Amount}}</p>
    </div>
    {{end}}
    <div class="services">
      <h3>Services Applied:</h3>
      <p><strong>{{.ServicesList}}</strong></p>
      <p>Photos processed: <strong>{{len .Links}}</strong></p>
    </div>
    <h3>Your Restored Photos:</h3>
    <p>Click the buttons below to save each photo:</p>
    {{range .Links}}
    <div class="photo">
      <h4>Photo {{.Index}}</h4>
      <img src="{{imageURL .URL}}" alt="Restored Photo {{.Index}}" style="max-width: 300px; height: auto; border-radius: 8px;">
      <br><br>
      <a href="{{imageURL .URL}}" class="button" download="{{.Filename}}">Download Photo {{.Index}}</a>
    </div>
    {{end}}
    {{if .Paid}}
    <div class="paid-notice">
      <h4>Receipt Information:</h4>
      <p>Payment ID: {{.PaymentIntentID}}</p>
      <p>Keep this email as your receipt.</p>
    </div>
    {{end}}
    <p>Thank you for choosing {{.Brand}}!</p>
  </div>
  <div class="footer">
    <p>This email was sent to {{.To}}</p>
    {{if .Paid}}<p>Payment ID: {{.PaymentIntentID}}</p>{{end}}
  </div>
</div>
</body>
</html>`

const recoveryTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Payment Recovery - {{.Brand}}</title>
<style>{{.Style}}</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Your Paid Photos</h1>
    <p>Manual Recovery - {{.Brand}}</p>
  </div>
  <div class="content">
    <div class="urgent">
      <p><strong>We apologize.</strong> Your payment was successful but automatic delivery failed.</p>
    </div>
    <div class="paid-notice">
      <h3>Payment Confirmed</h3>
      <p><strong>Payment ID:</strong> {{.PaymentIntentID}}</p>
    </div>
    {{if .Links}}
    <h3>Your Photos:</h3>
    {{range .Links}}
    <div class="photo">
      <a href="{{imageURL .URL}}" class="button" download="{{.Filename}}">Download Photo {{.Index}}</a>
    </div>
    {{end}}
    {{else}}
    <h3>Next Steps:</h3>
    <ol>
      {{range .NextSteps}}<li>{{.}}</li>{{end}}
    </ol>
    {{end}}
    <div class="paid-notice">
      <p>Support: {{.SupportEmail}}</p>
      <p>Payment ID: {{.PaymentIntentID}}</p>
    </div>
  </div>
</div>
</body>
</html>`

const testTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><style>{{.Style}}</style></head>
<body>
<div class="container">
  <div class="header"><h1>{{.Brand}} test email</h1></div>
  <div class="content">
    <p>Sender {{.From}} is able to deliver mail to {{.To}}.</p>
    <p>Sent at {{.SentAt}}.</p>
  </div>
</div>
</body>
</html>`
