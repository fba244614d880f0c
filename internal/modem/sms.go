package modem

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// SendMessage sends body to number as a text-mode SMS. The number is passed
// to the modem verbatim.
func (d *Driver) SendMessage(number, body string) error {
	const operation = "send message"
	if err := d.requireOpen(operation); err != nil {
		return err
	}

	previous := d.state
	d.state = StateSending
	defer func() { d.state = previous }()

	lines := append(textModeSetup(), fmt.Sprintf(CMD_SEND_SMS_FMT, number))
	text := NormalizeGSMText(body) + string(rune(endOfMessage))

	if _, err := d.runScript(operation, lines, text); err != nil {
		d.logger.Warn("sms failed", zap.String("to", number), zap.Error(err))
		return err
	}

	d.logger.Info("sms sent", zap.String("to", number))
	return nil
}

// ListUnreadMessages asks the modem for unread messages and parses the
// listing. The raw reply stays available through LastResponse.
func (d *Driver) ListUnreadMessages() ([]SMS, error) {
	const operation = "list unread messages"
	if err := d.requireOpen(operation); err != nil {
		return nil, err
	}

	lines := append(textModeSetup(), CMD_LIST_UNREAD)
	response, err := d.runScript(operation, lines, "")
	if err != nil {
		return nil, err
	}

	messages := ParseSMSList(response)
	d.logger.Debug("unread messages", zap.Int("count", len(messages)))
	return messages, nil
}

// ==================== +CMGL parsing ====================

// ParseSMSList extracts +CMGL entries from a text-mode listing. Lines before
// the first entry (echoed commands, setup OKs) are ignored. The final
// OK/ERROR status line ends the listing; every other line after an entry
// header is body text, joined with "\n".
func ParseSMSList(response string) []SMS {
	var lines []string
	for _, line := range strings.Split(response, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if n := len(lines); n > 0 && isFinalStatus(lines[n-1]) {
		lines = lines[:n-1]
	}

	var smsList []SMS
	var current *SMS
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.Join(body, "\n")
		smsList = append(smsList, *current)
		body = body[:0]
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "+CMGL:") {
			flush()
			sms := parseCMGLLine(line)
			current = &sms
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	return smsList
}

func isFinalStatus(line string) bool {
	return line == successToken || line == "ERROR"
}

// parseCMGLLine parses `+CMGL: <index>,<stat>,<oa>,<alpha>,<scts>`.
func parseCMGLLine(line string) SMS {
	var sms SMS
	parts := strings.SplitN(strings.TrimSpace(strings.TrimPrefix(line, "+CMGL:")), ",", 5)

	if index, err := strconv.Atoi(strings.Trim(parts[0], " \"")); err == nil {
		sms.Index = index
	}
	if len(parts) > 1 {
		sms.Status = strings.Trim(parts[1], " \"")
	}
	if len(parts) > 2 {
		sms.Sender = strings.Trim(parts[2], " \"")
	}
	if len(parts) > 4 {
		sms.Timestamp = strings.Trim(parts[4], " \"")
	}
	return sms
}
