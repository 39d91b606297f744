// Package ratelimit paces outgoing requests on the client side.
//
// Wallhaven enforces its own per-minute quota and tells the client when to
// back off, so pacing is off by default. Setting rate_limit.requests_per_minute
// installs a TokenBucket that hands out that many requests per minute:
//
//	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// issue the request
package ratelimit
