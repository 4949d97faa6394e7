package upload_test

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"i4.energy/across/gpstracker/clock"
	"i4.energy/across/gpstracker/gps"
	"i4.energy/across/gpstracker/modem"
	"i4.energy/across/gpstracker/upload"
)

var sampleFix = gps.Fix{
	Latitude:      45.123456,
	Longitude:     -7.654321,
	Altitude:      120,
	Timestamp:     700000000,
	Satellites:    7,
	SpeedKPH:      42.5,
	LocationValid: true,
}

const samplePayload = "lat=45.123456&lng=-7.654321&alt=120&dt=700000000&sat=7&spd=42.50"

func TestPayload(t *testing.T) {
	assert.Equal(t, samplePayload, upload.Payload(sampleFix))
}

func TestRequest(t *testing.T) {
	req := upload.Request("tracker.example.com", "/fix", "gpstracker/1.0", samplePayload)

	want := "POST /fix HTTP/1.1\r\n" +
		"Host: tracker.example.com\r\n" +
		"User-Agent: gpstracker/1.0\r\n" +
		"Content-Length: " + strconv.Itoa(len(samplePayload)) + "\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"\r\n" +
		samplePayload + "\r\n\r\n"
	assert.Equal(t, want, req)
	assert.Contains(t, req, "Content-Length: 64\r\n")
}

func newSequencer(t *testing.T, transport *modem.TestTransport) (*upload.Sequencer, *clock.Fake) {
	fake := clock.NewFake(0)
	return newSequencerOver(t, transport, fake), fake
}

// echoingTransport returns every write to the reader ahead of the reply,
// like a modem with echo left on.
type echoingTransport struct {
	*modem.TestTransport
}

func (e echoingTransport) Write(p []byte) (int, error) {
	e.Inject(string(p))
	return e.TestTransport.Write(p)
}

// timedTransport records the fake clock time at which each write starts.
type timedTransport struct {
	*modem.TestTransport
	clock *clock.Fake
	at    map[string]uint32
}

func (tt *timedTransport) Write(p []byte) (int, error) {
	tt.at[strings.TrimSuffix(string(p), "\r\n")] = tt.clock.Millis()
	return tt.TestTransport.Write(p)
}

func newSequencerOver(t *testing.T, transport modem.Transport, fake *clock.Fake) *upload.Sequencer {
	config, err := modem.NewConfigBuilder().
		WithDialer(modem.TestDialer{Transport: transport}).
		WithClock(fake).
		Build()
	require.NoError(t, err)
	s, err := modem.New(context.Background(), config)
	require.NoError(t, err)
	return upload.NewSequencer(s, upload.Config{Host: "tracker.example.com", Path: "/fix"}, nil)
}

// cooperativeModem answers every step of a successful upload.
func cooperativeModem() *modem.TestTransport {
	return modem.NewTestTransport().
		Reply("AT", "OK\r\n").
		Reply("AT+CGATT=1", "\r\n+CTZV: 24/10/16,08:18:36,+00\r\n").
		Reply("AT+CIPSTART", "OK\r\n\r\nCONNECT OK\r\n").
		Reply("AT+CIPSEND", "> ").
		Reply("\x1a", "\r\nSEND OK\r\nHTTP/1.1 200 OK\r\n")
}

func TestUpload(t *testing.T) {
	ctx := context.Background()
	teardown := []string{"AT+CIPCLOSE", "AT+CGACT=0"}

	t.Run("Delivered", func(t *testing.T) {
		transport := cooperativeModem()
		q, fake := newSequencer(t, transport)

		outcome := q.Upload(ctx, sampleFix)

		assert.Equal(t, upload.Outcome{Delivered: true}, outcome)
		assert.Equal(t, append([]string{
			"AT+CGATT=1",
			`AT+CGDCONT=1,"IP","internet"`,
			"AT+CGACT=1,1",
			`AT+CIPSTART="TCP","tracker.example.com",80`,
			"AT+CIPSEND",
		}, teardown...), transport.Commands())

		writes := transport.Writes()
		request := upload.Request("tracker.example.com", "/fix", "gpstracker/1.0", samplePayload)
		assert.Equal(t, request, writes[5])
		assert.Equal(t, "\x1a", writes[6])
		// Context settle plus send settle; every reply was immediate.
		assert.Equal(t, uint32(4000), fake.Millis())
	})

	t.Run("Attach failure stops before any network step", func(t *testing.T) {
		transport := modem.NewTestTransport().Reply("AT", "ERROR\r\n")
		q, fake := newSequencer(t, transport)

		outcome := q.Upload(ctx, sampleFix)

		assert.False(t, outcome.Delivered)
		assert.Equal(t, upload.StepAttach, outcome.FailedStep)
		assert.Equal(t, "ERROR\r\n", outcome.Raw)
		assert.Equal(t, []string{"AT+CGATT=1"}, transport.Commands())
		assert.Equal(t, uint32(5000), fake.Millis())
	})

	t.Run("Context definition failure is ignored", func(t *testing.T) {
		transport := cooperativeModem().Reply("AT+CGDCONT", "ERROR\r\n")
		q, fake := newSequencer(t, transport)

		outcome := q.Upload(ctx, sampleFix)

		assert.True(t, outcome.Delivered)
		assert.Equal(t, uint32(10000+4000), fake.Millis())
	})

	t.Run("Open failure still tears down", func(t *testing.T) {
		transport := cooperativeModem().Reply("AT+CIPSTART", "CONNECT FAIL\r\n")
		q, _ := newSequencer(t, transport)

		outcome := q.Upload(ctx, sampleFix)

		assert.Equal(t, upload.StepOpen, outcome.FailedStep)
		assert.Equal(t, "CONNECT FAIL\r\n", outcome.Raw)
		cmds := transport.Commands()
		assert.Equal(t, teardown, cmds[len(cmds)-2:])
		assert.NotContains(t, cmds, "AT+CIPSEND")
	})

	t.Run("Activation failure", func(t *testing.T) {
		transport := cooperativeModem().Reply("AT+CGACT=1,1", "+CME ERROR: 148\r\n")
		q, _ := newSequencer(t, transport)

		outcome := q.Upload(ctx, sampleFix)

		assert.Equal(t, upload.StepActivate, outcome.FailedStep)
		assert.Equal(t, append([]string{
			"AT+CGATT=1",
			`AT+CGDCONT=1,"IP","internet"`,
			"AT+CGACT=1,1",
		}, teardown...), transport.Commands())
	})

	t.Run("No send prompt", func(t *testing.T) {
		transport := cooperativeModem().Reply("AT+CIPSEND", "ERROR\r\n")
		q, _ := newSequencer(t, transport)

		outcome := q.Upload(ctx, sampleFix)

		assert.Equal(t, upload.StepSend, outcome.FailedStep)
		for _, w := range transport.Writes() {
			assert.False(t, strings.HasPrefix(w, "POST"), "request written without prompt")
		}
	})

	t.Run("Server rejects", func(t *testing.T) {
		transport := cooperativeModem().Reply("\x1a", "\r\nSEND OK\r\nHTTP/1.1 500 Internal Server Error\r\n")
		q, _ := newSequencer(t, transport)

		outcome := q.Upload(ctx, sampleFix)

		assert.False(t, outcome.Delivered)
		assert.Equal(t, upload.StepResponse, outcome.FailedStep)
		assert.Contains(t, outcome.Raw, "500")
		cmds := transport.Commands()
		assert.Equal(t, teardown, cmds[len(cmds)-2:])
	})
}

func TestUploadSettleOrder(t *testing.T) {
	fake := clock.NewFake(0)
	transport := &timedTransport{TestTransport: cooperativeModem(), clock: fake, at: map[string]uint32{}}
	q := newSequencerOver(t, transport, fake)

	outcome := q.Upload(context.Background(), sampleFix)
	require.True(t, outcome.Delivered)

	define, ok := transport.at[`AT+CGDCONT=1,"IP","internet"`]
	require.True(t, ok)
	activate, ok := transport.at["AT+CGACT=1,1"]
	require.True(t, ok)
	open, ok := transport.at[`AT+CIPSTART="TCP","tracker.example.com",80`]
	require.True(t, ok)

	assert.GreaterOrEqual(t, activate-define, uint32(3000), "context must settle before activation")
	assert.Equal(t, activate, open, "activation and open answer immediately")
}

func TestUploadWithEcho(t *testing.T) {
	// The timestamp contains the success code, and so does the echoed request.
	fix := sampleFix
	fix.Timestamp = 720012345

	t.Run("Server error is not mistaken for success", func(t *testing.T) {
		transport := cooperativeModem().Reply("\x1a", "\r\nSEND OK\r\nHTTP/1.1 500 Internal Server Error\r\n")
		q := newSequencerOver(t, echoingTransport{transport}, clock.NewFake(0))

		outcome := q.Upload(context.Background(), fix)

		assert.False(t, outcome.Delivered)
		assert.Equal(t, upload.StepResponse, outcome.FailedStep)
		assert.Contains(t, outcome.Raw, "dt=720012345")
		assert.Contains(t, outcome.Raw, "500")
	})

	t.Run("Delivered", func(t *testing.T) {
		q := newSequencerOver(t, echoingTransport{cooperativeModem()}, clock.NewFake(0))

		outcome := q.Upload(context.Background(), fix)

		assert.Equal(t, upload.Outcome{Delivered: true}, outcome)
	})

	t.Run("HTTP/1.0 status line", func(t *testing.T) {
		transport := cooperativeModem().Reply("\x1a", "\r\nSEND OK\r\nHTTP/1.0 200 OK\r\n")
		q := newSequencerOver(t, echoingTransport{transport}, clock.NewFake(0))

		assert.True(t, q.Upload(context.Background(), fix).Delivered)
	})
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "attach", upload.StepAttach.String())
	assert.Equal(t, "response", upload.StepResponse.String())
	assert.Equal(t, "unknown", upload.Step(42).String())
}
