package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInvalidTick          ErrorCode = 103
	ErrCodeInvalidFill          ErrorCode = 104

	// Engine errors (200-299)
	ErrCodeEngineNotInitialized ErrorCode = 200
	ErrCodeSnapshotEncode       ErrorCode = 201
	ErrCodeSnapshotRestore      ErrorCode = 202

	// Gateway errors (300-399)
	ErrCodeOrderPlacementFailed  ErrorCode = 300
	ErrCodeOrderCancelFailed     ErrorCode = 301
	ErrCodeMarketDataFetchFailed ErrorCode = 302
	ErrCodeOpenOrdersFailed      ErrorCode = 303
	ErrCodeFillFetchFailed       ErrorCode = 304

	// Journal errors (400-499)
	ErrCodeJournalInitFailed   ErrorCode = 400
	ErrCodeJournalWriteFailed  ErrorCode = 401
	ErrCodeJournalQueryFailed  ErrorCode = 402
	ErrCodeJournalExportFailed ErrorCode = 403

	// Data source errors (500-599)
	ErrCodeDataSourceUnavailable ErrorCode = 500
	ErrCodeDataNotFound          ErrorCode = 501
	ErrCodeQueryFailed           ErrorCode = 502
	ErrCodeDataWriteFailed       ErrorCode = 503

	// Driver and server errors (600-699)
	ErrCodeDriverRunFailed    ErrorCode = 600
	ErrCodeServerStartFailed  ErrorCode = 601
	ErrCodeShutdownIncomplete ErrorCode = 602
)
