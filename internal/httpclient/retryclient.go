package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eapache/go-resiliency/retrier"
)

// errStatusNope marks a 4xx response as non-retriable to the retrier's
// classifier, same as the teacher's rangetripper.RetryClient.
var errStatusNope = errors.New("non-retriable HTTP status received")

// RetryClient wraps an *http.Client with exponential backoff over a fixed
// number of retries after the first attempt, retrying only transient
// network errors and 5xx
// responses (spec §7's retry policy: base 1s, factor 2).
type RetryClient struct {
	client  *http.Client
	retrier *retrier.Retrier
}

// NewRetryClient returns a RetryClient that retries up to retries times,
// starting at base and doubling each attempt, using client as the
// transport.
func NewRetryClient(client *http.Client, retries int, base time.Duration) *RetryClient {
	b := make(retrier.BlacklistClassifier, 1)
	b[0] = errStatusNope

	return &RetryClient{
		client:  client,
		retrier: retrier.New(retrier.ExponentialBackoff(retries, base), b),
	}
}

// Do executes req, retrying per the RetryClient's policy. 4xx responses
// (permanent) return immediately as errStatusNope-classified failures and
// are not retried; 5xx and transport errors are retried.
func (w *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var ret *http.Response

	try := func() error {
		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			resp.Body.Close()
			return errStatusNope
		case resp.StatusCode >= 500:
			resp.Body.Close()
			return fmt.Errorf("server error: %s", resp.Status)
		}

		ret = resp
		return nil
	}

	if err := w.retrier.Run(try); err != nil {
		return nil, err
	}
	return ret, nil
}
