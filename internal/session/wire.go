package session

// HTTP contract shared by the server and the Remote backend.
const (
	// APIPrefix is the versioned route prefix.
	APIPrefix = "/api/v1"

	// StackPath serves GET (state), POST (push) and DELETE (clear).
	StackPath = APIPrefix + "/stack"

	// OpPath is the prefix of POST {OpPath}/{name}.
	OpPath = APIPrefix + "/op"
)

// Error kinds used on the wire besides the engine taxonomy.
const (
	// KindValidation marks a malformed request body.
	KindValidation = "ValidationError"

	// KindInternal marks a server-side failure with unknown outcome.
	KindInternal = "Internal"
)

// PushRequest is the body of POST /stack.
// Value is a pointer so a missing field can be told apart from zero.
type PushRequest struct {
	Value *float64 `json:"value"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Kind   string `json:"kind"`
}
