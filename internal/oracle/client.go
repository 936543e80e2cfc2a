package oracle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// ClientOptions configures the call policy wrapped around an Oracle.
type ClientOptions struct {
	// CallsPerWindow calls are allowed per Window (token bucket).
	CallsPerWindow int
	Window         time.Duration
	// Timeout bounds each individual call.
	Timeout        time.Duration
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Logger         *slog.Logger
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.CallsPerWindow <= 0 {
		o.CallsPerWindow = 5
	}
	if o.Window <= 0 {
		o.Window = time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 3
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Client applies rate limiting, per-call timeouts and bounded retries to an
// Oracle. It is safe for concurrent use.
type Client struct {
	oracle  Oracle
	limiter *rate.Limiter
	opts    ClientOptions
}

func NewClient(o Oracle, opts ClientOptions) *Client {
	opts = opts.withDefaults()
	every := opts.Window / time.Duration(opts.CallsPerWindow)
	return &Client{
		oracle:  o,
		limiter: rate.NewLimiter(rate.Every(every), opts.CallsPerWindow),
		opts:    opts,
	}
}

// Generate implements Oracle. Only rate_limited, timeout and server_error
// failures are retried.
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(err)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
		text, err := c.oracle.Generate(callCtx, prompt, opts)
		if err == nil {
			return text, nil
		}

		oe := c.classify(ctx, callCtx, err)
		if oe == nil {
			return "", backoff.Permanent(err)
		}
		if !oe.Retryable() {
			return "", backoff.Permanent(oe)
		}
		return "", oe
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.InitialBackoff
	bo.MaxInterval = c.opts.MaxBackoff

	text, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.opts.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.opts.Logger.Warn("oracle call failed, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", next),
				slog.String("error", err.Error()))
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		return "", err
	}
	return text, nil
}

// classify turns err into an oracle Error. A call that outlived its own
// deadline is a timeout; cancellation of the parent context is not classified.
func (c *Client) classify(parent, call context.Context, err error) *Error {
	var oe *Error
	if errors.As(err, &oe) {
		return oe
	}
	if parent.Err() != nil {
		return nil
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Type: ErrTimeout, Err: err}
	}
	return &Error{Type: classifyTransport(err), Err: err}
}
