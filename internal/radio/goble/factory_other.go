//go:build !linux && !darwin

package goble

import (
	"fmt"
	"runtime"
)

func newHostDevice() (Advertiser, error) {
	return nil, fmt.Errorf("no host BLE controller support on %s", runtime.GOOS)
}
