package consts

const (
	MortgageCollection = "mortgages"

	StatusPending  = "PENDING"
	StatusPastDue  = "PASTDUE"
	StatusAutosold = "AUTOSOLD"
	StatusRepaid   = "REPAID"

	TriggerAuto   = "AUTO"
	TriggerManual = "MANUAL"

	JobStatusQueued    = "QUEUED"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"

	ClaimKeyPrefix = "autosell:claim:"
	JobKeyPrefix   = "autosell:job:"

	HealthCheckPath = "/IntegrationServices/AutosellWorker/HealthCheck"
)

// MonitoredStatuses are the repayment states the worker keeps in memory.
var MonitoredStatuses = []string{StatusPending, StatusPastDue}
