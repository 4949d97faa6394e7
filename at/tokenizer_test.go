package at_test

import (
	"bufio"
	"strings"
	"testing"

	"i4.energy/across/gpstracker/at"
)

func TestSplitter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Simple AT command response",
			input:    "AT+CSQ\r\n+CSQ: 15,99\r\nOK\r\n",
			expected: []string{"AT+CSQ", "+CSQ: 15,99", "OK"},
		},
		{
			name:     "AT command with error",
			input:    "AT+CPIN?\r\n+CME ERROR: 10\r\n",
			expected: []string{"AT+CPIN?", "+CME ERROR: 10"},
		},
		{
			name:     "Socket send sequence",
			input:    "AT+CIPSEND\r\n> POST /track HTTP/1.1\r\n\x1A\r\nOK\r\n",
			expected: []string{"AT+CIPSEND", "> ", "POST /track HTTP/1.1", "\x1A", "OK"},
		},
		{
			name:     "Network registration check",
			input:    "AT+CREG?\r\n+CREG: 0,1\r\nOK\r\n",
			expected: []string{"AT+CREG?", "+CREG: 0,1", "OK"},
		},
		{
			name:     "Attach answered with time zone",
			input:    "AT+CGATT=1\r\n+CTZV:19/10/16,07:12:05,+08\r\nOK\r\n",
			expected: []string{"AT+CGATT=1", "+CTZV:19/10/16,07:12:05,+08", "OK"},
		},
		{
			name:     "URC mixed with AT response",
			input:    "AT+CSQ\r\n+CMTI: \"SM\",1\r\n+CSQ: 20,99\r\nOK\r\n",
			expected: []string{"AT+CSQ", "+CMTI: \"SM\",1", "+CSQ: 20,99", "OK"},
		},
		{
			name:     "Send prompt only",
			input:    "> ",
			expected: []string{"> "},
		},
		{
			name:     "Empty lines handling",
			input:    "\r\n\r\nAT\r\nOK\r\n\r\n",
			expected: []string{"", "", "AT", "OK", ""},
		},
		{
			name:     "Multiple URCs",
			input:    "+CMTI: \"SM\",1\r\n+CMTI: \"SM\",2\r\nRING\r\n+CMTI: \"SM\",3\r\n",
			expected: []string{"+CMTI: \"SM\",1", "+CMTI: \"SM\",2", "RING", "+CMTI: \"SM\",3"},
		},
		{
			name:     "Socket open",
			input:    "AT+CIPSTART=\"TCP\",\"example.org\",80\r\nOK\r\nCONNECT OK\r\n",
			expected: []string{"AT+CIPSTART=\"TCP\",\"example.org\",80", "OK", "CONNECT OK"},
		},
		// EOF scenarios - testing atEOF functionality
		{
			name:     "Incomplete command at EOF",
			input:    "AT+CSQ\r\n+CSQ: 15,99",
			expected: []string{"AT+CSQ", "+CSQ: 15,99"},
		},
		{
			name:     "Command without CRLF at EOF",
			input:    "AT+CPIN",
			expected: []string{"AT+CPIN"},
		},
		{
			name:     "Request body without terminator at EOF",
			input:    "AT+CIPSEND\r\n> lat=1.000000",
			expected: []string{"AT+CIPSEND", "> ", "lat=1.000000"},
		},
		{
			name:     "Response cut off mid-stream at EOF",
			input:    "AT+CSQ\r\n+CSQ: 15,99\r\nOK\r\n+CMTI: \"SM\",1",
			expected: []string{"AT+CSQ", "+CSQ: 15,99", "OK", "+CMTI: \"SM\",1"},
		},
		{
			name:     "Partial send prompt at EOF",
			input:    "AT+CIPSEND\r\n>",
			expected: []string{"AT+CIPSEND", ">"},
		},
		{
			name:     "Mixed complete and incomplete at EOF",
			input:    "AT+CCID\r\n+CCID: 8931080019073497795F\r\nOK",
			expected: []string{"AT+CCID", "+CCID: 8931080019073497795F", "OK"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tokens []string
			scanner := bufio.NewScanner(strings.NewReader(tt.input))
			scanner.Split(at.Splitter)

			for scanner.Scan() {
				tokens = append(tokens, scanner.Text())
			}

			if err := scanner.Err(); err != nil {
				t.Fatalf("Scanner error: %v", err)
			}

			if len(tokens) != len(tt.expected) {
				t.Fatalf("Expected %d tokens, got %d.\nExpected: %v\nGot: %v",
					len(tt.expected), len(tokens), tt.expected, tokens)
			}

			for i, expected := range tt.expected {
				if tokens[i] != expected {
					t.Errorf("Token %d: expected %q, got %q", i, expected, tokens[i])
				}
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected at.ResponseType
	}{
		// Final responses
		{name: "OK response", input: "OK", expected: at.TypeFinal},
		{name: "ERROR response", input: "ERROR", expected: at.TypeFinal},
		{name: "CME Error", input: "+CME ERROR: 30", expected: at.TypeFinal},
		{name: "CMS Error", input: "+CMS ERROR: 500", expected: at.TypeFinal},
		{name: "NO CARRIER", input: "NO CARRIER", expected: at.TypeFinal},
		{name: "Socket connected", input: "CONNECT OK", expected: at.TypeFinal},

		// URCs
		{name: "New message URC", input: "+CMTI: \"SM\",1", expected: at.TypeURC},
		{name: "Incoming call URC", input: "RING", expected: at.TypeURC},
		{name: "Time zone URC", input: "+CTZV:19/10/16,07:12:05,+08", expected: at.TypeURC},
		{name: "Registration URC", input: "+CREG: 1", expected: at.TypeURC},

		// Data responses
		{name: "AT command", input: "AT+CSQ", expected: at.TypeData},
		{name: "Signal quality response", input: "+CSQ: 15,99", expected: at.TypeData},
		{name: "SIM identity", input: "+CCID: 8931080019073497795F", expected: at.TypeData},
		{name: "HTTP status line", input: "HTTP/1.1 200 OK", expected: at.TypeData},
		{name: "Device info", input: "A7", expected: at.TypeData},

		// Prompt
		{name: "Send input prompt", input: "> ", expected: at.TypePrompt},
		{name: "Trimmed send prompt", input: ">", expected: at.TypePrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := at.Classify(tt.input)
			if result != tt.expected {
				t.Errorf("Expected %v, got %v for input %q", tt.expected, result, tt.input)
			}
		})
	}
}

func TestLines(t *testing.T) {
	raw := "AT+GPS=1\r\n\r\nOK\r\n\r\n+CTZV:19/10/16,07:12:05,+08"
	lines := at.Lines(raw)

	expected := []string{"AT+GPS=1", "OK", "+CTZV:19/10/16,07:12:05,+08"}
	if len(lines) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, lines)
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("Line %d: expected %q, got %q", i, expected[i], lines[i])
		}
	}
}

func TestIsError(t *testing.T) {
	for _, line := range []string{"ERROR", "+CME ERROR: 30", "+CMS ERROR: 500", "CONNECT FAIL", "NO CARRIER"} {
		if !at.IsError(line) {
			t.Errorf("Expected %q to be an error", line)
		}
	}
	for _, line := range []string{"OK", "CONNECT OK", "+CREG: 1", ""} {
		if at.IsError(line) {
			t.Errorf("Expected %q not to be an error", line)
		}
	}
}

func TestCommandBuilders(t *testing.T) {
	if got := at.DefinePDPContext("internet"); got != `AT+CGDCONT=1,"IP","internet"` {
		t.Errorf("Unexpected context command %q", got)
	}
	if got := at.StartTCP("example.org", 80); got != `AT+CIPSTART="TCP","example.org",80` {
		t.Errorf("Unexpected socket command %q", got)
	}
}
