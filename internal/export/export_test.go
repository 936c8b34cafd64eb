package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/embed-provider-sync/internal/store"
)

func TestSnapshotNotification(t *testing.T) {
	t.Parallel()

	providers := store.NewProviders()
	providers.Set("a", []string{"x"})
	providers.Set("c", nil)
	snap := Snapshot{
		RunID:     uuid.MustParse("0190f5a0-0000-7000-8000-000000000001"),
		At:        time.Date(2024, 7, 1, 12, 0, 0, 0, time.FixedZone("x", 3600)),
		Providers: providers,
		Updated:   2,
	}

	data, err := json.Marshal(snap.Notification())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"run_id": "0190f5a0-0000-7000-8000-000000000001",
		"at": "2024-07-01T11:00:00Z",
		"providers": 2,
		"pruned": [],
		"updated": 2,
		"failed": []
	}`, string(data))
}
