//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

type cdevOutput struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func openOutput(chipPath, name string) (output, error) {
	chip, err := gpiocdev.NewChip(chipPath)
	if err != nil {
		return nil, fmt.Errorf("gpio: open %s: %w", chipPath, err)
	}
	off := offset(name)
	if off < 0 {
		off, err = chip.FindLine(name)
		if err != nil {
			_ = chip.Close()
			return nil, fmt.Errorf("gpio: line %q not found on %s: %w", name, chipPath, err)
		}
	}
	line, err := chip.RequestLine(off, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(Consumer))
	if err != nil {
		_ = chip.Close()
		return nil, fmt.Errorf("gpio: request %s:%d: %w", chipPath, off, err)
	}
	return &cdevOutput{chip: chip, line: line}, nil
}

func (o *cdevOutput) SetValue(value int) error {
	return o.line.SetValue(value)
}

func (o *cdevOutput) Close() error {
	err := o.line.Close()
	_ = o.chip.Close()
	return err
}
