//go:build !linux

package watch

import "time"

func defaultSource(interval time.Duration) Source { return &PollSource{Interval: interval} }
