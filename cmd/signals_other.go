//go:build !unix

package cmd

// notifyControl has no SIGUSR1/SIGUSR2 to listen to on this platform.
func notifyControl() (reset, clearView <-chan struct{}, stop func()) {
	return nil, nil, func() {}
}
