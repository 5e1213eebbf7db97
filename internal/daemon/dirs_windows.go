//go:build windows

package daemon

// deviceID is not available on Windows; every path reports the same device.
func deviceID(string) (uint64, error) {
	return 0, nil
}
