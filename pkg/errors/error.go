package errors

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalServerError represents a generic internal server error.
	GeneralInternalServerError ErrorCode = "general_internal_server_error"
	// GeneralBadRequestError represents a generic bad request error.
	GeneralBadRequestError ErrorCode = "general_bad_request_error"
	// GeneralNotFoundError represents a generic not found error.
	GeneralNotFoundError ErrorCode = "general_not_found_error"

	// OrderFeedReadError represents an error when reading from the order topic.
	OrderFeedReadError ErrorCode = "order_feed_read_error"
	// OrderFeedDecodeError represents an error when decoding an order request payload.
	OrderFeedDecodeError ErrorCode = "order_feed_decode_error"
	// OrderFeedCommitError represents an error when committing order topic offsets.
	OrderFeedCommitError ErrorCode = "order_feed_commit_error"
	// OrderRejectedError represents an error when an order fails admission checks.
	OrderRejectedError ErrorCode = "order_rejected_error"

	// FillPublishError represents an error when publishing fill events.
	FillPublishError ErrorCode = "fill_publish_error"

	// SnapshotMarshalError represents an error when serializing a book snapshot.
	SnapshotMarshalError ErrorCode = "snapshot_marshal_error"
	// SnapshotStoreError represents an error when persisting a book snapshot.
	SnapshotStoreError ErrorCode = "snapshot_store_error"
	// SnapshotLoadError represents an error when loading a book snapshot.
	SnapshotLoadError ErrorCode = "snapshot_load_error"

	// RedisConfigError represents an error when the Redis configuration is invalid or nil.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisDisconnectionError represents an error when disconnecting from Redis.
	RedisDisconnectionError ErrorCode = "redis_disconnection_error"
	// RedisPingError represents an error when pinging Redis.
	RedisPingError ErrorCode = "redis_pinging_error"
	// RedisGetError represents an error when getting a value from Redis.
	RedisGetError ErrorCode = "redis_get_error"
	// RedisSetError represents an error when setting a value in Redis.
	RedisSetError ErrorCode = "redis_set_error"
	// RedisDelError represents an error when deleting a value from Redis.
	RedisDelError ErrorCode = "redis_del_error"
)

// ErrorDetails represents detailed information about an error.
type ErrorDetails struct {
	// Message (required) is the user-defined error message.
	// E.g. "order size must be positive".
	Message string

	// Code (required) is the user-defined error code string.
	// E.g. "order_rejected_error".
	Code string

	// Field (optional) is the related field or operation the error occurred on, if any.
	Field string

	// Object (optional) is the related object the error occurred on, if any.
	Object interface{}
}

// NewErrorDetails creates a new ErrorDetails struct with the given parameters.
func NewErrorDetails(message, code, field string) *ErrorDetails {
	return &ErrorDetails{
		Message: message,
		Code:    code,
		Field:   field,
	}
}

// NewErrorDetailsWithObject creates a new ErrorDetails struct with an associated object.
func NewErrorDetailsWithObject(message, code, field string, object interface{}) *ErrorDetails {
	return &ErrorDetails{
		Message: message,
		Code:    code,
		Field:   field,
		Object:  object,
	}
}

// Error() is used to implement the Golang `error` interface.
func (e *ErrorDetails) Error() string {
	return e.Message
}

// ErrorCodeEquals checks whether a given `error` has a specific code.
func ErrorCodeEquals(err error, code string) bool {
	errDetails, ok := err.(*ErrorDetails)
	if !ok {
		return false
	}

	return errDetails.Code == code
}
