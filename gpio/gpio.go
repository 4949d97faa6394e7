// Package gpio drives the modem board's power key and reset pins as
// digital outputs through the Linux GPIO character device.
package gpio

import (
	"errors"
	"fmt"
	"strconv"
)

// Consumer labels the requested lines in the kernel's GPIO bookkeeping.
const Consumer = "gpstracker-modem"

// DefaultChip is the character device probed when none is configured.
const DefaultChip = "/dev/gpiochip0"

// output is the subset of a requested line the tracker uses.
type output interface {
	SetValue(value int) error
	Close() error
}

// Line is a single output line. All lines start low.
type Line struct {
	name string
	out  output
}

// SetValue drives the line high (1) or low (0).
func (l *Line) SetValue(value int) error {
	if l == nil || l.out == nil {
		return fmt.Errorf("gpio: line not initialized")
	}
	if err := l.out.SetValue(value); err != nil {
		return fmt.Errorf("gpio: set %s to %d: %w", l.name, value, err)
	}
	return nil
}

// Close drives the line low and releases it.
func (l *Line) Close() error {
	if l == nil || l.out == nil {
		return nil
	}
	_ = l.out.SetValue(0)
	err := l.out.Close()
	l.out = nil
	return err
}

func (l *Line) String() string { return l.name }

// Lines are the two outputs of the modem board.
type Lines struct {
	PowerKey *Line
	Reset    *Line
}

// Close releases both lines.
func (l Lines) Close() error {
	return errors.Join(l.PowerKey.Close(), l.Reset.Close())
}

// OpenLines requests the power key and reset lines on chip. Each line is
// given either as a numeric offset or as a line name such as "GPIO17".
func OpenLines(chip, powerKey, reset string) (Lines, error) {
	if chip == "" {
		chip = DefaultChip
	}
	pk, err := Open(chip, powerKey)
	if err != nil {
		return Lines{}, err
	}
	rst, err := Open(chip, reset)
	if err != nil {
		_ = pk.Close()
		return Lines{}, err
	}
	return Lines{PowerKey: pk, Reset: rst}, nil
}

// Open requests a single output line on chip, initially low.
func Open(chip, line string) (*Line, error) {
	if line == "" {
		return nil, fmt.Errorf("gpio: no line configured on %s", chip)
	}
	out, err := openOutput(chip, line)
	if err != nil {
		return nil, err
	}
	return &Line{name: chip + ":" + line, out: out}, nil
}

// offset returns the numeric offset of line, or -1 if line is a name.
func offset(line string) int {
	n, err := strconv.Atoi(line)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
