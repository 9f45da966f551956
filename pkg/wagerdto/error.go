package wagerdto

// Error codes surfaced to API clients. Each ledger/oracle precondition maps
// to exactly one code so callers never have to parse message text.
const (
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeAmountMismatch    = "AMOUNT_MISMATCH"
	CodeSelfJoin          = "SELF_JOIN_NOT_ALLOWED"
	CodeAlreadyJoined     = "ALREADY_JOINED"
	CodeNotGameOwner      = "NOT_GAME_OWNER"
	CodeAlreadyCompleted  = "ALREADY_COMPLETED"
	CodeNotFound          = "NOT_FOUND"
	CodeNotJoined         = "NOT_JOINED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidResult     = "INVALID_RESULT"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeBadRequest        = "BAD_REQUEST"
	CodeInternal          = "INTERNAL"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (e APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "wager service error"
}
