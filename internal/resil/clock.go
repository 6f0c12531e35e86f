package resil

import "time"

var timeNow = time.Now

// Now returns the package clock's current time. Tests swap the clock to drive
// freshness windows without sleeping.
func Now() time.Time {
	return timeNow()
}

func SetTimeNowFn(f func() time.Time) {
	timeNow = f
}

func RestoreTimeNow() {
	timeNow = time.Now
}
