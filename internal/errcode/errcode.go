package errcode

// Export error codes:
// - 0: no error
// - 4004: the session expired before the export ran
// - 5000: system error
const (
	OK             = 0
	SessionMissing = 4004
	SystemError    = 5000
)
