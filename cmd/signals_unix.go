//go:build unix

package cmd

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// notifyControl turns SIGUSR1 into counter-reset requests and SIGUSR2
// into clear requests.
func notifyControl() (reset, clearView <-chan struct{}, stop func()) {
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, unix.SIGUSR1, unix.SIGUSR2)

	resetC := make(chan struct{}, 1)
	clearC := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case s := <-sig:
				out := resetC
				if s == unix.SIGUSR2 {
					out = clearC
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case <-done:
				return
			}
		}
	}()
	return resetC, clearC, func() {
		signal.Stop(sig)
		close(done)
	}
}
