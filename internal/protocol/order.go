package protocol

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order field names the device owns. Everything else is opaque.
const (
	FieldClientID  = "client_id"
	FieldCreatedAt = "created_at"
)

// randomSuffixLen is the length of the random part of generated ids.
const randomSuffixLen = 9

// Order is an opaque order record.
type Order map[string]any

// Item is an opaque order line item.
type Item map[string]any

// ClientID returns the device-assigned id, or "" if none is set.
func (o Order) ClientID() string {
	id, _ := o[FieldClientID].(string)
	return id
}

// Stamp assigns client_id and created_at if they are missing and returns
// the client id. It mutates o so a caller retrying the same order value
// reuses the id.
func (o Order) Stamp(now time.Time) string {
	id := o.ClientID()
	if id == "" {
		id = NewID("order", now)
		o[FieldClientID] = id
	}
	if _, ok := o[FieldCreatedAt]; !ok {
		o[FieldCreatedAt] = now.UTC().Format(time.RFC3339Nano)
	}
	return id
}

// NewID returns "<prefix>_<unixMillis>_<random>" with a short lowercase
// alphanumeric random suffix.
func NewID(prefix string, now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:randomSuffixLen]
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), random)
}
