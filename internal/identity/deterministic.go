package identity

import (
	"slices"
	"strconv"
	"strings"
	"time"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

const namespace = "grc-migrate"

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers prefix keys by record type so different records never collide.
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// BatchUUID identifies a revisionless batch by its content: the object type,
// the action, the ids it covers and the second it was recorded.
func BatchUUID(objectType, action string, ids []int64, at time.Time) uuid.UUID {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	parts := make([]string, 0, len(sorted))
	for _, id := range slices.Compact(sorted) {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return UUID(namespace + ":revisionless_batch:" + objectType + ":" + action + ":" +
		strings.Join(parts, ",") + ":" + at.UTC().Truncate(time.Second).Format(time.RFC3339))
}

// RunID returns a fresh identifier for one driver invocation.
func RunID() uuid.UUID {
	return uuid.New()
}
