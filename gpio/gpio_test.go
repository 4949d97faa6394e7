package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutput struct {
	values []int
	closed bool
	err    error
}

func (f *fakeOutput) SetValue(value int) error {
	f.values = append(f.values, value)
	return f.err
}

func (f *fakeOutput) Close() error {
	f.closed = true
	return nil
}

func TestLine(t *testing.T) {
	out := &fakeOutput{}
	l := &Line{name: "gpiochip0:17", out: out}

	require.NoError(t, l.SetValue(1))
	require.NoError(t, l.SetValue(0))
	require.NoError(t, l.Close())

	assert.Equal(t, []int{1, 0, 0}, out.values, "close drives the line low")
	assert.True(t, out.closed)
	assert.Error(t, l.SetValue(1), "closed line")
	assert.NoError(t, l.Close())
}

func TestLineSetValueError(t *testing.T) {
	busy := errors.New("busy")
	l := &Line{name: "gpiochip0:4", out: &fakeOutput{err: busy}}

	err := l.SetValue(1)
	assert.ErrorIs(t, err, busy)
	assert.Contains(t, err.Error(), "gpiochip0:4")
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 17, offset("17"))
	assert.Equal(t, 0, offset("0"))
	assert.Equal(t, -1, offset("GPIO17"))
	assert.Equal(t, -1, offset("-3"))
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("/dev/gpiochip-missing", "")
	assert.Error(t, err)

	_, err = OpenLines("/dev/gpiochip-missing", "17", "27")
	assert.Error(t, err)
}
