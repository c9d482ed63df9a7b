package config

import "time"

// debounce forwards the latest value from in once no other value has arrived
// for delay. Editors often save in several writes; only the last one matters.
// Closing in flushes a pending value and closes the returned channel.
func debounce[T any](in <-chan T, delay time.Duration) <-chan T {
	out := make(chan T, 1)

	go func() {
		defer close(out)

		timer := time.NewTimer(delay)
		timer.Stop()
		defer timer.Stop()

		var (
			pending T
			waiting bool
		)

		for {
			select {
			case e, ok := <-in:
				if !ok {
					if waiting {
						out <- pending
					}
					return
				}
				pending, waiting = e, true
				timer.Reset(delay)

			case <-timer.C:
				if waiting {
					out <- pending
					waiting = false
				}
			}
		}
	}()

	return out
}
