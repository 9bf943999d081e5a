package maildir

import "time"

// retryUntil calls cond until it reports done or fails, calling sleep with
// interval between attempts. There is no attempt limit; a caller that needs
// a deadline wraps the whole operation.
func retryUntil(sleep func(time.Duration), interval time.Duration, cond func() (done bool, err error)) error {
	for {
		done, err := cond()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		sleep(interval)
	}
}
