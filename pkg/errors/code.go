package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 13100-13199: Sandbox & Judge errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Sandbox & Judge Errors (13100-13199) ==========

	// Judge (13100-13109)
	JudgeSystemError  ErrorCode = 13101
	ProfileNotFound   ErrorCode = 13102
	ConfigLoadFailed  ErrorCode = 13103
	HelperUnavailable ErrorCode = 13104

	// Sandbox setup (13110-13120), one per setup error of a run
	InvalidConfig     ErrorCode = 13110
	ForkFailed        ErrorCode = 13111
	PthreadFailed     ErrorCode = 13112
	WaitFailed        ErrorCode = 13113
	RootRequired      ErrorCode = 13114
	LoadSeccompFailed ErrorCode = 13115
	SetrlimitFailed   ErrorCode = 13116
	Dup2Failed        ErrorCode = 13117
	SetuidFailed      ErrorCode = 13118
	ExecveFailed      ErrorCode = 13119
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Judge
	JudgeSystemError:  "Judge system error",
	ProfileNotFound:   "Seccomp profile not found",
	ConfigLoadFailed:  "Failed to load run config",
	HelperUnavailable: "Sandbox helper is not available",

	// Sandbox setup
	InvalidConfig:     "Invalid sandbox config",
	ForkFailed:        "Failed to start sandboxed process",
	PthreadFailed:     "Failed to arm real time watchdog",
	WaitFailed:        "Failed to wait for sandboxed process",
	RootRequired:      "Sandbox requires root privilege",
	LoadSeccompFailed: "Failed to load seccomp filter",
	SetrlimitFailed:   "Failed to set resource limit",
	Dup2Failed:        "Failed to redirect standard streams",
	SetuidFailed:      "Failed to drop privilege",
	ExecveFailed:      "Failed to execute program",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized:
		return 401
	case c == Forbidden:
		return 403
	case c == NotFound, c == ProfileNotFound:
		return 404
	case c == TooManyRequests:
		return 429
	case c == ServiceUnavailable, c == HelperUnavailable:
		return 503
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == InvalidConfig, c == ConfigLoadFailed:
		return 400
	default:
		return 500
	}
}
