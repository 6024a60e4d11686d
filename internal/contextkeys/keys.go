package contextkeys

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// RequestID is the context key for the per-request correlation id.
	RequestID contextKey = "requestID"
	// UserID is the context key for the authenticated admin's subject.
	UserID contextKey = "userID"
	// UserRole is the context key for the authenticated admin's role.
	UserRole contextKey = "userRole"
)
