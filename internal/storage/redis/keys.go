package redis

import (
	"fmt"

	"github.com/redskie/bamaco/internal/model"
)

// Key prefix for all community data
const keyPrefix = "bamaco"

// recordKey returns the Redis key for one record of a collection
func recordKey(c model.Collection, id string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, c, id)
}

// indexKey returns the Redis key for the SET of ids in a collection
func indexKey(c model.Collection) string {
	return fmt.Sprintf("%s:idx:%s", keyPrefix, c)
}

// identityKey returns the Redis key for an Identity
func identityKey(fc model.FriendCode) string {
	return recordKey(model.CollectionIdentities, string(fc))
}

// queueEntriesKey returns the Redis key for the LIST holding the play queue
func queueEntriesKey() string {
	return fmt.Sprintf("%s:%s", keyPrefix, model.CollectionQueueEntries)
}
