package mongo

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	ErrHealthcheckFailed      = errors.New("mongo healthcheck failed")
	ErrFailedToStoreEntries   = errors.New("failed to store audit entries")
	ErrFailedToQueryEntries   = errors.New("failed to query audit entries")
	ErrFailedToCreateIndexes  = errors.New("failed to create audit indexes")
)
