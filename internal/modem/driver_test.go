package modem_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitals-alert/internal/modem"
	"vitals-alert/internal/modem/modemtest"
)

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) { s.calls = append(s.calls, d) }

func newDriver(t *testing.T, tr *modemtest.FakeTransport) (*modem.Driver, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	d := modem.NewDriver(tr, modem.WithSleep(rec.sleep))
	return d, rec
}

func openDriver(t *testing.T, tr *modemtest.FakeTransport) (*modem.Driver, *sleepRecorder) {
	t.Helper()
	d, rec := newDriver(t, tr)
	require.NoError(t, d.Open("/dev/ttyFAKE"))
	return d, rec
}

func TestClassifyResponse(t *testing.T) {
	assert.NoError(t, modem.ClassifyResponse([]byte("OK\r\n")))
	assert.NoError(t, modem.ClassifyResponse([]byte("AT\r\n+CMGS: 12\r\n\r\nOK\r\n")))
	assert.ErrorIs(t, modem.ClassifyResponse([]byte("ERROR\r\n")), modem.ErrCommandFailure)
	assert.ErrorIs(t, modem.ClassifyResponse([]byte("")), modem.ErrCommandFailure)
	assert.ErrorIs(t, modem.ClassifyResponse(nil), modem.ErrCommandFailure)
}

func TestOperationsWhileClosedTouchNothing(t *testing.T) {
	tr := modemtest.NewOK()
	d, rec := newDriver(t, tr)

	ops := map[string]func() error{
		"send": func() error { return d.SendMessage("+38344922805", "hello") },
		"call": func() error { return d.PlaceCall("+38344922805") },
		"end":  func() error { return d.EndCall() },
		"list": func() error { _, err := d.ListUnreadMessages(); return err },
	}
	for name, op := range ops {
		assert.ErrorIs(t, op(), modem.ErrNotConnected, name)
	}

	assert.Zero(t, tr.Opens)
	assert.Empty(t, tr.Writes)
	assert.Zero(t, tr.Reads)
	assert.Empty(t, rec.calls)
}

func TestCloseIsIdempotent(t *testing.T) {
	tr := modemtest.NewOK()
	d, _ := newDriver(t, tr)

	assert.NoError(t, d.Close(), "close before open")

	require.NoError(t, d.Open("/dev/ttyFAKE"))
	assert.NoError(t, d.Close())
	assert.NoError(t, d.Close())
	assert.Equal(t, 1, tr.Closes)
	assert.Equal(t, modem.StateClosed, d.State())
}

func TestOpenFailureIsConnectionFailure(t *testing.T) {
	tr := modemtest.NewOK()
	tr.OpenErr = fmt.Errorf("%w: permission denied", modem.ErrConnectionFailure)
	d, _ := newDriver(t, tr)

	err := d.Open("/dev/ttyUSB9")
	assert.ErrorIs(t, err, modem.ErrConnectionFailure)
	assert.False(t, d.IsOpen())
	assert.ErrorIs(t, d.SendMessage("+1", "x"), modem.ErrNotConnected)
}

func TestOpenTwiceFails(t *testing.T) {
	d, _ := openDriver(t, modemtest.NewOK())
	assert.ErrorIs(t, d.Open("/dev/ttyFAKE"), modem.ErrConnectionFailure)
	assert.Equal(t, modem.StateIdle, d.State())
}

func TestSendMessageScript(t *testing.T) {
	tr := modemtest.NewOK()
	d, rec := openDriver(t, tr)

	require.NoError(t, d.SendMessage("+38344922805", "BP 190/115"))

	assert.Equal(t, []string{
		"AT\r\n",
		"AT+CMGF=1\r\n",
		"AT+CSCS=\"GSM\"\r\n",
		"AT+CMGS=\"+38344922805\"\r\n",
		"BP 190/115\x1a",
	}, tr.Writes)
	assert.Equal(t, []time.Duration{
		modem.DefaultSettleDelay,
		modem.DefaultSettleDelay,
		modem.DefaultSettleDelay,
		modem.DefaultSettleDelay,
		modem.DefaultResponseDelay,
	}, rec.calls)
	assert.Equal(t, 1, tr.Reads)
	assert.Equal(t, modem.StateIdle, d.State())
	assert.Equal(t, "BP 190/115", d.LastCommand())
}

func TestSendMessageFailureCarriesResponse(t *testing.T) {
	for name, response := range map[string]string{"error": "ERROR\r\n", "empty": ""} {
		t.Run(name, func(t *testing.T) {
			tr := modemtest.NewReplying(response)
			d, _ := openDriver(t, tr)

			err := d.SendMessage("+38344922805", "hello")
			require.ErrorIs(t, err, modem.ErrCommandFailure)

			var cmdErr *modem.CommandError
			require.True(t, errors.As(err, &cmdErr))
			assert.Equal(t, strings.Repeat(response, 5), cmdErr.Response)
			assert.Equal(t, "send message", cmdErr.Operation)
			assert.Equal(t, modem.StateIdle, d.State(), "failure returns to idle")
			assert.Len(t, tr.Writes, 5, "no retries")
		})
	}
}

func TestSendMessagePassesNumberVerbatim(t *testing.T) {
	tr := modemtest.NewOK()
	d, _ := openDriver(t, tr)

	require.NoError(t, d.SendMessage("not-a-number", "x"))
	assert.Contains(t, tr.Writes, "AT+CMGS=\"not-a-number\"\r\n")
}

func TestSendMessageNormalizesBody(t *testing.T) {
	tr := modemtest.NewOK()
	d, _ := openDriver(t, tr)

	require.NoError(t, d.SendMessage("+1", "Dritón\x1a Ålija"))
	assert.Equal(t, "Driton Alija\x1a", tr.Writes[len(tr.Writes)-1])
}

func TestWriteFailureIsCommandFailure(t *testing.T) {
	tr := modemtest.NewOK()
	d, _ := openDriver(t, tr)
	boom := errors.New("broken pipe")
	tr.WriteErr = boom

	err := d.SendMessage("+1", "x")
	assert.ErrorIs(t, err, modem.ErrCommandFailure)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, tr.Reads)
}

func TestCallLifecycle(t *testing.T) {
	tr := modemtest.NewOK()
	d, rec := openDriver(t, tr)

	require.NoError(t, d.PlaceCall("+38344922805"))
	assert.Equal(t, modem.StateInCall, d.State())
	assert.Equal(t, []string{"AT\r\n", "ATD+38344922805;\r\n"}, tr.Writes)
	assert.Equal(t, []time.Duration{modem.DefaultSettleDelay, modem.DefaultResponseDelay}, rec.calls)

	require.NoError(t, d.EndCall())
	assert.Equal(t, modem.StateIdle, d.State())
	assert.Equal(t, "ATH\r\n", tr.Writes[len(tr.Writes)-1])

	require.NoError(t, d.Close())
	assert.Equal(t, modem.StateClosed, d.State())
}

func TestPlaceCallFailureStaysIdle(t *testing.T) {
	tr := modemtest.NewReplying("NO CARRIER\r\n")
	d, _ := openDriver(t, tr)

	err := d.PlaceCall("+1")
	assert.ErrorIs(t, err, modem.ErrCommandFailure)
	assert.Equal(t, modem.StateIdle, d.State())
}

func TestEndCallFailureKeepsCallState(t *testing.T) {
	tr := modemtest.NewOK()
	d, _ := openDriver(t, tr)
	require.NoError(t, d.PlaceCall("+1"))

	tr.Response = "ERROR\r\n"
	assert.ErrorIs(t, d.EndCall(), modem.ErrCommandFailure)
	assert.Equal(t, modem.StateInCall, d.State())

	require.NoError(t, d.Close(), "close works from any state")
}

func TestCustomDelays(t *testing.T) {
	tr := modemtest.NewOK()
	rec := &sleepRecorder{}
	d := modem.NewDriver(tr,
		modem.WithSleep(rec.sleep),
		modem.WithSettleDelay(5*time.Millisecond),
		modem.WithResponseDelay(50*time.Millisecond),
	)
	require.NoError(t, d.Open("/dev/ttyFAKE"))
	require.NoError(t, d.EndCall())
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 50 * time.Millisecond}, rec.calls)
}

const unreadListing = "AT\r\nOK\r\nAT+CMGF=1\r\nOK\r\nAT+CSCS=\"GSM\"\r\nOK\r\n" +
	"AT+CMGL=\"REC UNREAD\"\r\n" +
	"+CMGL: 3,\"REC UNREAD\",\"+38344111222\",\"\",\"24/03/03,08:15:00+04\"\r\n" +
	"Patient 4 stable now\r\n" +
	"+CMGL: 4,\"REC UNREAD\",\"+38344333444\",\"\",\"24/03/03,08:16:10+04\"\r\n" +
	"Line one\r\nLine two\r\n" +
	"\r\nOK\r\n"

func TestListUnreadMessages(t *testing.T) {
	tr := &modemtest.FakeTransport{Reply: func(payload string) string {
		if strings.HasPrefix(payload, "AT+CMGL") {
			return unreadListing
		}
		return ""
	}}
	d, _ := openDriver(t, tr)

	messages, err := d.ListUnreadMessages()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"AT\r\n", "AT+CMGF=1\r\n", "AT+CSCS=\"GSM\"\r\n", "AT+CMGL=\"REC UNREAD\"\r\n",
	}, tr.Writes)

	require.Len(t, messages, 2)
	assert.Equal(t, modem.SMS{
		Index:     3,
		Status:    "REC UNREAD",
		Sender:    "+38344111222",
		Timestamp: "24/03/03,08:15:00+04",
		Text:      "Patient 4 stable now",
	}, messages[0])
	assert.Equal(t, 4, messages[1].Index)
	assert.Equal(t, "Line one\nLine two", messages[1].Text)
	assert.Equal(t, unreadListing, d.LastResponse())
}

func TestListUnreadMessagesKeepsStatusLikeBodies(t *testing.T) {
	listing := "AT\r\nOK\r\nAT+CMGF=1\r\nOK\r\nAT+CSCS=\"GSM\"\r\nOK\r\n" +
		"AT+CMGL=\"REC UNREAD\"\r\n" +
		"+CMGL: 5,\"REC UNREAD\",\"+38344111222\",\"\",\"24/03/03,09:00:00+04\"\r\n" +
		"OK\r\n" +
		"+CMGL: 6,\"REC UNREAD\",\"+38344333444\",\"\",\"24/03/03,09:01:00+04\"\r\n" +
		"ATM room 3 ready\r\n" +
		"\r\nOK\r\n"
	tr := &modemtest.FakeTransport{Reply: func(payload string) string {
		if strings.HasPrefix(payload, "AT+CMGL") {
			return listing
		}
		return ""
	}}
	d, _ := openDriver(t, tr)

	messages, err := d.ListUnreadMessages()
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "OK", messages[0].Text)
	assert.Equal(t, "ATM room 3 ready", messages[1].Text)
	assert.Equal(t, "+38344333444", messages[1].Sender)
}

func TestParseSMSListErrorStatus(t *testing.T) {
	messages := modem.ParseSMSList("+CMGL: 1,\"REC UNREAD\",\"+1\",\"\",\"24/03/03,09:00:00+04\"\r\nERROR ahead\r\nERROR\r\n")
	require.Len(t, messages, 1)
	assert.Equal(t, "ERROR ahead", messages[0].Text)
	assert.Empty(t, modem.ParseSMSList(""))
}

func TestListUnreadMessagesEmptyInbox(t *testing.T) {
	d, _ := openDriver(t, modemtest.NewOK())
	messages, err := d.ListUnreadMessages()
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", modem.StateClosed.String())
	assert.Equal(t, "idle", modem.StateIdle.String())
	assert.Equal(t, "sending", modem.StateSending.String())
	assert.Equal(t, "in-call", modem.StateInCall.String())
}
