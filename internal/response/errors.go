package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"
	ErrSessionRevoked     ErrCode = "SESSION_REVOKED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation       ErrCode = "VALIDATION_ERROR"
	ErrInvalidID        ErrCode = "INVALID_ID"
	ErrInvalidPayload   ErrCode = "INVALID_PAYLOAD"
	ErrInvalidAnswerKey ErrCode = "INVALID_ANSWER_KEY"
	ErrUnknownQuestions ErrCode = "UNKNOWN_QUESTIONS"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam & attempt ────────────────────────────────────────────────
	ErrExamNotAvailable ErrCode = "EXAM_NOT_AVAILABLE"
	ErrEmptyExam        ErrCode = "EMPTY_EXAM"
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"
	ErrAttemptExpired   ErrCode = "ATTEMPT_EXPIRED"
	ErrUnknownWSAction  ErrCode = "UNKNOWN_ACTION"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

var messages = map[ErrCode]string{
	ErrInvalidCredentials: "Invalid email or password.",
	ErrEmailTaken:         "An account with this email already exists.",
	ErrTokenRequired:      "Authentication token is required.",
	ErrTokenInvalid:       "Authentication token is invalid.",
	ErrTokenExpired:       "Authentication token has expired.",
	ErrSessionRevoked:     "This session has been signed out.",

	ErrForbidden:        "You do not have access to this resource.",
	ErrPermissionDenied: "Your role does not allow this action.",

	ErrValidation:       "Validation failed. Please check your input.",
	ErrInvalidID:        "Invalid ID format.",
	ErrInvalidPayload:   "Invalid request payload.",
	ErrInvalidAnswerKey: "The correct answer does not fit the question type or its options.",
	ErrUnknownQuestions: "The exam references questions that do not exist.",

	ErrNotFound: "Resource not found.",

	ErrExamNotAvailable: "This exam is not available.",
	ErrEmptyExam:        "An exam without questions cannot be published.",
	ErrAlreadySubmitted: "This attempt has already been submitted.",
	ErrAttemptExpired:   "The time for this attempt has run out.",
	ErrUnknownWSAction:  "Unknown action.",

	ErrRateLimitExceeded: "Too many requests. Please try again later.",

	ErrInternal: "Internal server error.",
}

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "An unexpected error occurred."
}
