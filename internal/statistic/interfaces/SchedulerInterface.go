package interfaces

type SchedulerInterface interface {
	Init()
	Stop()
	// Refresh reloads statistics for the whole roster right away.
	Refresh()
}
