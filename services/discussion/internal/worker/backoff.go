package worker

import "time"

// backoffDelay grows 1s, 2s, 4s ... per redelivery, capped at a minute.
func backoffDelay(numDelivered uint64) time.Duration {
	attempt := int(numDelivered)
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 7 {
		return time.Minute
	}
	sec := 1 << (attempt - 1)
	if sec > 60 {
		sec = 60
	}
	return time.Duration(sec) * time.Second
}
