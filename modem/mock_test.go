package modem_test

import (
	gomock "go.uber.org/mock/gomock"
	"i4.energy/across/gpstracker/modem"
)

// MockSequenceBuilder scripts the wire traffic of consecutive transactions:
// the stale-byte drain, the command write and the modem's reply.
type MockSequenceBuilder struct {
	transport *modem.MockTransport
	calls     []any
}

func NewMockSequence(transport *modem.MockTransport) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		transport: transport,
		calls:     []any{},
	}
}

// Exchange expects cmd to be written and answers it with resp.
func (b *MockSequenceBuilder) Exchange(cmd, resp string) *MockSequenceBuilder {
	wire := cmd + "\r\n"
	b.calls = append(b.calls,
		b.transport.EXPECT().Read(gomock.Any()).Return(0, nil),
		b.transport.EXPECT().Write([]byte(wire)).Return(len(wire), nil),
		b.transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			return copy(p, resp), nil
		}),
	)
	return b
}

func (b *MockSequenceBuilder) VerboseErrors() *MockSequenceBuilder {
	return b.Exchange("AT+CMEE=2", "AT+CMEE=2\r\nOK\r\n")
}

func (b *MockSequenceBuilder) SimIdentity() *MockSequenceBuilder {
	return b.Exchange("AT+CCID", "+CCID: 8931080019073497795F\r\nOK\r\n")
}

func (b *MockSequenceBuilder) EchoOff() *MockSequenceBuilder {
	return b.Exchange("ATE0", "ATE0\r\nOK\r\n")
}

func (b *MockSequenceBuilder) SMSStorage() *MockSequenceBuilder {
	return b.Exchange(`AT+CPMS="SM","SM","SM"`, "+CPMS: 0,50,0,50,0,50\r\nOK\r\n")
}

func (b *MockSequenceBuilder) SMSTextMode() *MockSequenceBuilder {
	return b.Exchange("AT+CMGF=1", "OK\r\n")
}

func (b *MockSequenceBuilder) Build() []any {
	return b.calls
}
