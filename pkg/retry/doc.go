// Package retry decides how to react when the server asks the client to slow down.
//
// Wallhaven answers quota violations with a Retry-After header. The client
// parses it with ParseRetryAfter, asks a Policy whether the wait is acceptable
// and then sleeps with Wait, which returns early when the context is cancelled.
//
//	policy := retry.NewPolicy(cfg.RateLimit.MaxWaits, cfg.RateLimit.MaxWait)
//	wait, err := retry.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
//	if err != nil {
//	    return err
//	}
//	if err := policy.Allow(attempt, wait); err != nil {
//	    return err // quota error
//	}
//	if err := retry.Wait(ctx, wait); err != nil {
//	    return err
//	}
//
// Unbounded is the default and honours every wait. Bounded caps the number of
// waits per request and the length of a single wait.
package retry
