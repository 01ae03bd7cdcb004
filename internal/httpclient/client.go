// Package httpclient builds the retrying HTTP client shared by the registry
// lookups and the binary download.
package httpclient

import (
	"fmt"
	"strings"
	"time"

	"gatewayctl/pkg/logging"

	"github.com/hashicorp/go-retryablehttp"
)

const subsystem = "HTTP"

// New returns a client that retries connection errors and 5xx responses up to
// retries times. When retries are exhausted the last response is handed back
// to the caller instead of being swallowed, so status checks still apply.
func New(retries int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = leveledLogger{}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	// Downloads are streamed; no overall timeout, callers pass contexts.
	client.HTTPClient.Timeout = 0
	return client
}

// leveledLogger routes retryablehttp diagnostics into pkg/logging.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	logging.Error(subsystem, nil, "%s", withFields(msg, keysAndValues))
}

func (leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	logging.Warn(subsystem, "%s", withFields(msg, keysAndValues))
}

func (leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug(subsystem, "%s", withFields(msg, keysAndValues))
}

func (leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	logging.Debug(subsystem, "%s", withFields(msg, keysAndValues))
}

func withFields(msg string, keysAndValues []interface{}) string {
	if len(keysAndValues) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	return b.String()
}
