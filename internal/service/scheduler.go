package service

import "time"

type Timer interface {
	Stop() bool
}

// Scheduler 抽象化延遲執行，測試時可以手動觸發
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
