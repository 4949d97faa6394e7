package tracker

import "strings"

// Console supplies operator lines. Poll must never block.
type Console interface {
	Poll() (string, bool)
}

// ChannelConsole is a Console fed from other goroutines.
type ChannelConsole struct {
	lines chan string
}

func NewChannelConsole(size int) *ChannelConsole {
	return &ChannelConsole{lines: make(chan string, size)}
}

// Submit queues a line. It reports false when the queue is full.
func (c *ChannelConsole) Submit(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	select {
	case c.lines <- line:
		return true
	default:
		return false
	}
}

func (c *ChannelConsole) Poll() (string, bool) {
	select {
	case line := <-c.lines:
		return line, true
	default:
		return "", false
	}
}
