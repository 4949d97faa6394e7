//go:build !linux

package gpio

import "fmt"

func openOutput(chipPath, name string) (output, error) {
	return nil, fmt.Errorf("gpio: %s:%s: GPIO character device is only available on linux", chipPath, name)
}
