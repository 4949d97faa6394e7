package modem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"i4.energy/across/gpstracker/at"
	"i4.energy/across/gpstracker/clock"
)

// maxDrain caps how many bytes a single drain pulls from the transport, so
// a chatty modem cannot keep the caller inside one read loop forever.
const maxDrain = 4096

// Session drives a half-duplex, line-oriented AT conversation with the modem.
// It is not safe for concurrent use: the tracker calls it from a single
// loop, and every exchange runs to its own success or timeout before the
// next one starts.
type Session struct {
	// transport provides the physical connection to the modem
	transport Transport
	// clock measures transaction timeouts and paces polling
	clock clock.Clock
	// diag receives every raw response, successful or not
	diag Diagnostics
	// logger is used for events that are not part of a transaction
	logger *slog.Logger
	// pollInterval is the pause between two empty reads
	pollInterval time.Duration
	// bufferSize bounds the response accumulator
	bufferSize int
	// echoOn records whether the modem echoes commands back
	echoOn bool
	// closed indicates if the session has been shut down
	closed bool
	// readBuf is reused across reads
	readBuf []byte
}

// Transaction describes one command/response exchange.
type Transaction struct {
	// Command is written followed by CRLF. An empty Command makes the
	// transaction a pure wait: nothing is written.
	Command string
	// PatternA and PatternB are searched for in the accumulated response;
	// either one is sufficient. Set both to the same value to require a
	// single token. Neither may be empty.
	PatternA string
	PatternB string
	// Timeout bounds the wait for a pattern, measured after the write.
	Timeout time.Duration
}

// Result is the outcome of a Transaction.
type Result struct {
	// OK is true when a pattern appeared before the timeout.
	OK bool
	// Raw is the accumulated response, kept regardless of OK.
	Raw string
	// Elapsed is the time spent waiting for a pattern.
	Elapsed time.Duration
	// Truncated counts bytes dropped from the front of Raw on overflow.
	Truncated int
}

// Command builds a transaction that writes cmd and waits for either pattern.
func Command(cmd, patternA, patternB string, timeout time.Duration) Transaction {
	return Transaction{Command: cmd, PatternA: patternA, PatternB: patternB, Timeout: timeout}
}

// Wait builds a transaction that only waits for either pattern.
func Wait(patternA, patternB string, timeout time.Duration) Transaction {
	return Transaction{PatternA: patternA, PatternB: patternB, Timeout: timeout}
}

// New creates a new Session with the given configuration.
// It establishes the transport connection; no command is sent, as the
// modem may still be powered down at this point.
//
// Returns an error if the transport connection fails.
func New(ctx context.Context, config Config) (*Session, error) {
	if config.Dialer == nil {
		return nil, ErrNoDialer
	}
	config.setDefaults()

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	return &Session{
		transport:    transport,
		clock:        config.Clock,
		diag:         config.Diagnostics,
		logger:       config.Logger,
		pollInterval: config.PollInterval,
		bufferSize:   config.BufferSize,
		echoOn:       config.EchoOn,
		readBuf:      make([]byte, 256),
	}, nil
}

// Clock returns the clock the session measures time with.
func (s *Session) Clock() clock.Clock {
	return s.clock
}

// Close shuts down the session and releases the transport.
// After calling Close(), the session cannot be reused.
func (s *Session) Close() error {
	if s.closed {
		return ErrAlreadyClosed
	}

	s.closed = true

	if s.transport != nil {
		return s.transport.Close()
	}

	return nil
}

// Execute runs one exchange:
//
// 1. If a command is present, bytes already pending are discarded (and
// reported as echo) and the command is written with a CRLF terminator
// 2. Available bytes are drained into a bounded accumulator until either
// pattern is contained or the timeout elapses
// 3. The raw accumulator is handed to the diagnostics sink
//
// A pure wait does not discard pending bytes, since the awaited token may
// already have arrived.
//
// A timeout is not an error: it yields a Result with OK unset. The returned
// error reports transport failures, cancellation, or an invalid transaction.
// Execute never retries.
func (s *Session) Execute(ctx context.Context, tx Transaction) (Result, error) {
	if err := s.check(); err != nil {
		return Result{}, err
	}
	if tx.PatternA == "" || tx.PatternB == "" {
		return Result{}, fmt.Errorf("transaction %q: %w", tx.Command, ErrEmptyPattern)
	}

	acc := at.NewBuffer(s.bufferSize)
	res, err := s.exchange(ctx, tx, acc)
	res.Raw = acc.String()
	res.Truncated = acc.Dropped()

	s.diag.Transaction(tx, res, err)
	return res, err
}

func (s *Session) exchange(ctx context.Context, tx Transaction, acc *at.Buffer) (Result, error) {
	if tx.Command != "" {
		if err := s.Echo(ctx); err != nil {
			return Result{}, err
		}
		wire := tx.Command + at.CRLF
		if _, err := s.transport.Write([]byte(wire)); err != nil {
			return Result{}, fmt.Errorf("write command %q: %w", tx.Command, err)
		}
	}

	start := s.clock.Millis()
	for {
		if err := ctx.Err(); err != nil {
			return Result{Elapsed: clock.Since(s.clock, start)}, err
		}

		n, matched, err := s.fill(acc, tx.PatternA, tx.PatternB)
		if err != nil {
			return Result{Elapsed: clock.Since(s.clock, start)}, fmt.Errorf("read response: %w", err)
		}
		elapsed := clock.Since(s.clock, start)
		if matched {
			return Result{OK: true, Elapsed: elapsed}, nil
		}
		if elapsed >= tx.Timeout {
			return Result{Elapsed: elapsed}, nil
		}
		if n == 0 {
			s.clock.Sleep(s.pollInterval)
		}
	}
}

// fill drains pending bytes into acc and stops early on the first
// containment of a pattern.
func (s *Session) fill(acc *at.Buffer, patterns ...string) (int, bool, error) {
	total := 0
	for total < maxDrain {
		n, err := s.transport.Read(s.readBuf)
		if n > 0 {
			acc.Write(s.readBuf[:n])
			total += n
			if acc.Contains(patterns...) {
				return total, true, nil
			}
		}
		if err != nil {
			return total, false, err
		}
		if n == 0 {
			break
		}
	}
	return total, false, nil
}

// Drain returns the bytes currently pending on the transport without
// waiting for more.
func (s *Session) Drain(ctx context.Context) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	for len(out) < maxDrain {
		n, err := s.transport.Read(s.readBuf)
		out = append(out, s.readBuf[:n]...)
		if err != nil {
			return out, fmt.Errorf("drain: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

// Echo drains pending bytes and surfaces them to the diagnostics sink.
func (s *Session) Echo(ctx context.Context) error {
	data, err := s.Drain(ctx)
	s.diag.Echo(data)
	return err
}

// Send writes raw data without waiting for any response. It is used for
// payloads following a data prompt.
func (s *Session) Send(ctx context.Context, data []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.transport.Write(data); err != nil {
		return fmt.Errorf("send %d bytes: %w", len(data), err)
	}
	return nil
}

// Expect executes cmd and reports whether either pattern was seen in time.
// Failures are already surfaced through diagnostics, so callers that only
// branch on success can ignore the details.
func (s *Session) Expect(ctx context.Context, cmd, patternA, patternB string, timeout time.Duration) bool {
	res, err := s.Execute(ctx, Command(cmd, patternA, patternB, timeout))
	return err == nil && res.OK
}

// ExpectOK executes cmd and waits for a plain OK.
func (s *Session) ExpectOK(ctx context.Context, cmd string, timeout time.Duration) bool {
	return s.Expect(ctx, cmd, at.OK, at.OK, timeout)
}

func (s *Session) check() error {
	if s.closed {
		return ErrAlreadyClosed
	}
	if s.transport == nil {
		return ErrNotInitialized
	}
	return nil
}
