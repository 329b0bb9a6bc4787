package rabbitmq

import (
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Expiration renders a per-message TTL the way the broker expects it.
func Expiration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	ms := d.Milliseconds()
	if ms == 0 {
		ms = 1
	}
	return strconv.FormatInt(ms, 10)
}

// RetryCountHeader counts retry hops. Brokers from 3.13 on drop client-set
// x-death, so the count travels in a header of our own.
const RetryCountHeader = "x-retry-count"

// RetryCount reports how many times a delivery has already been retried.
func RetryCount(d amqp.Delivery) int64 {
	switch n := d.Headers[RetryCountHeader].(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case int16:
		return int64(n)
	case int8:
		return int64(n)
	}
	return 0
}

// WithRetryCount copies headers, drops the broker-owned x-death entry and
// stamps the retry count.
func WithRetryCount(headers amqp.Table, n int64) amqp.Table {
	out := make(amqp.Table, len(headers)+1)
	for k, v := range headers {
		if k == "x-death" {
			continue
		}
		out[k] = v
	}
	out[RetryCountHeader] = n
	return out
}
