package modem

// AT commands, without the CRLF terminator (added by writeCommand).
const (
	CMD_ATTENTION      = "AT"
	CMD_SMS_TEXT_MODE  = "AT+CMGF=1"
	CMD_SET_CHARSET    = `AT+CSCS="GSM"`
	CMD_LIST_UNREAD    = `AT+CMGL="REC UNREAD"`
	CMD_HANG_UP        = "ATH"
	CMD_SEND_SMS_FMT   = `AT+CMGS="%s"`
	CMD_DIAL_VOICE_FMT = "ATD%s;"
)

const (
	// commandTerminator ends every command line.
	commandTerminator = "\r\n"
	// endOfMessage (Ctrl+Z) ends an SMS body after AT+CMGS.
	endOfMessage = 0x1A
	// escape (ESC) aborts an SMS body; stripped from outgoing text.
	escape = 0x1B
	// successToken marks a successful exchange anywhere in the response.
	successToken = "OK"
)
