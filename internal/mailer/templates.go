package mailer

import (
	"fmt"
	"html"
	"time"
)

// VisitorDetails は通知メールに載せる来訪者情報です。
type VisitorDetails struct {
	Name        string
	Date        string
	Time        string
	Reason      string
	ActionTaken string
}

// VisitorNotification は入館記録の通知メールを組み立てます。
func VisitorNotification(to string, v VisitorDetails) Message {
	body := fmt.Sprintf(`<html>
<body>
	<div style="max-width:600px;margin:0 auto;padding:20px;font-family:Arial,sans-serif;">
		<div style="background-color:#2a2185;color:white;padding:20px;text-align:center;">
			<h2>Sentinel Safe - Visitor Notification</h2>
		</div>
		<div style="background-color:#f9f9f9;padding:20px;">
			<p>A new visitor has been logged:</p>
			<div><strong>Name:</strong> %s</div>
			<div><strong>Date:</strong> %s</div>
			<div><strong>Time:</strong> %s</div>
			<div><strong>Reason:</strong> %s</div>
			<div><strong>Status:</strong> %s</div>
		</div>
		<div style="text-align:center;padding:20px;color:#666;">
			<p>This is an automated notification from Sentinel Safe Home Security System</p>
		</div>
	</div>
</body>
</html>`,
		html.EscapeString(v.Name),
		html.EscapeString(v.Date),
		html.EscapeString(v.Time),
		html.EscapeString(v.Reason),
		html.EscapeString(v.ActionTaken),
	)

	return Message{
		To:       to,
		Subject:  "New Visitor: " + v.Name,
		HTMLBody: body,
	}
}

// EmergencyAlert は要注意来訪者の緊急通知メールを組み立てます。
func EmergencyAlert(to, message string) Message {
	body := fmt.Sprintf(`<html>
<body>
	<div style="max-width:600px;margin:0 auto;padding:20px;font-family:Arial,sans-serif;">
		<div style="background-color:#dc3545;color:white;padding:20px;text-align:center;">
			<h2>EMERGENCY ALERT</h2>
		</div>
		<div style="background-color:#fff3cd;padding:20px;border:2px solid #dc3545;">
			<p><strong>An emergency has been reported at your property!</strong></p>
			<p>%s</p>
			<p><strong>Time:</strong> %s</p>
			<p>Please take immediate action.</p>
		</div>
		<div style="text-align:center;padding:20px;color:#666;">
			<p>Sentinel Safe Home Security System</p>
		</div>
	</div>
</body>
</html>`,
		html.EscapeString(message),
		time.Now().Format("2006-01-02 15:04:05"),
	)

	return Message{
		To:       to,
		Subject:  "EMERGENCY ALERT - Sentinel Safe",
		HTMLBody: body,
	}
}
