package notify

// Operator-facing status lines.
const (
	StatusReady              = "Ready to send a test message."
	StatusSending            = "Sending test message..."
	StatusSent               = "Message sent successfully."
	StatusMissingCredentials = "Bot token and chat id are required."
	StatusAlreadySending     = "A test message is already being sent."
	StatusRejectedFormat     = "Telegram returned error %d: %s"
	StatusTransportFormat    = "Failed to send message: %s"
)
