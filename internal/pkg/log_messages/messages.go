package log_messages

const (
	FailedLoadingConfiguration    = "failed to load configuration"
	ServerStartFailure            = "failed to start HTTP server"
	ServerExiting                 = "server exiting"
	KafkaProducerCreated          = "kafka producer created"
	KafkaPublishingDisabled       = "kafka server not configured, autosold events will not be published"
	ErrorFetchingMortgages        = "error fetching monitored mortgages from mongoDB"
	ErrorFetchingMortgage         = "error fetching mortgage from mongoDB"
	ErrorUpdatingMortgage         = "error updating mortgage document"
	ErrorCountingMortgages        = "error counting mortgages by status"
	InvalidMortgageID             = "invalid mortgage id"
	PendingSetResynced            = "pending mortgage set resynced"
	PendingSetResyncFailed        = "pending mortgage set resync failed, keeping last snapshot"
	CheckingAutosellConditions    = "Checking for autosell conditions"
	CycleSkippedInFlight          = "autosell cycle still in flight, skipping tick"
	CycleCompleted                = "autosell cycle completed"
	PriceLookupFailed             = "price lookup failed, keeping cached value"
	PriceLookupNoPairs            = "no trading pairs returned for token"
	PriceParseFailed              = "unable to parse pair price"
	MarkPastDueFailed             = "failed to mark mortgage as past due"
	MortgageMarkedPastDue         = "mortgage marked as past due"
	MortgageClaimedElsewhere      = "mortgage already claimed, skipping"
	AutosellIntentFailed          = "failed to persist autosell intent"
	AutosellIntentNotApplied      = "mortgage no longer eligible for autosell"
	SwapFailed                    = "collateral swap failed"
	AutosellIntentClearFailed     = "failed to clear autosell intent after swap failure"
	AutosellCommitRetrying        = "autosell commit failed, retrying"
	AutosellCommitFailed          = "autosell commit failed after swap; intent kept for manual reconciliation"
	AutosellEventPublishFailed    = "failed to publish autosold event"
	ClaimReleaseFailed            = "failed to release mortgage claim"
	MortgageAutosold              = "Loan ID %s was autosold"
	DanglingAutosellIntent        = "mortgage has a dangling autosell intent, requires reconciliation"
	LiquidationJobQueued          = "manual liquidation job queued"
	LiquidationJobFailed          = "manual liquidation job failed"
	LiquidationJobCompleted       = "manual liquidation job completed"
	LiquidationJobSaveFailed      = "failed to persist liquidation job state"
	ErrorDecodingQuoteResponse    = "failed to decode quote provider response: %v"
	ErrorQuoteProviderStatus      = "quote provider returned status %d"
	ErrorFailedToSendQuoteRequest = "failed to send quote request: %v"
	CleanupStarted                = "starting resource cleanup"
	CleanupCompleted              = "resource cleanup completed"
	SchedulerStarting             = "autosell scheduler starting"
	SchedulerReady                = "autosell scheduler ready"
	SchedulerStopped              = "autosell scheduler stopped"
	InitialResyncRetrying         = "initial pending set load failed, retrying"
	TracerShutdownFailed          = "failed to shut down tracer provider"
)
