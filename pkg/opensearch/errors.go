package opensearch

import "errors"

var (
	// ErrConnectionFailed indicates the client could not be created.
	ErrConnectionFailed = errors.New("opensearch connection failed")

	// ErrHealthcheckFailed indicates the cluster is unreachable or unhealthy.
	ErrHealthcheckFailed = errors.New("opensearch healthcheck failed")

	ErrFailedToCreateIndex  = errors.New("failed to create audit index")
	ErrFailedToStoreEntries = errors.New("failed to store audit entries")
	ErrFailedToQueryEntries = errors.New("failed to query audit entries")
)
