package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/tokodata/internal/models"
)

func TestFileTier_MissingFileIsEmptySnapshot(t *testing.T) {
	tier := NewFileTier(filepath.Join(t.TempDir(), "absent.json"))

	snap, err := tier.Load()
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestFileTier_RoundTrip(t *testing.T) {
	tier := NewFileTier(filepath.Join(t.TempDir(), "cache.json"))
	want := Snapshot{
		"penjualan": {
			FetchedAt: time.Now().UnixMilli(),
			Records:   models.Collection{{"ID_NOTA": "NOTA_1"}},
		},
	}

	require.NoError(t, tier.Store(want))
	got, err := tier.Load()
	require.NoError(t, err)
	require.Contains(t, got, "penjualan")
	assert.Equal(t, want["penjualan"].FetchedAt, got["penjualan"].FetchedAt)
	assert.Equal(t, "NOTA_1", got["penjualan"].Records[0]["ID_NOTA"])
}

func TestFileTier_CorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	snap, err := NewFileTier(path).Load()
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestFileTier_MalformedEntriesDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	raw := `{
		"good": {"fetched_at": 1700000000000, "records": [{"KODE": "BRG_1"}]},
		"no_timestamp": {"records": []},
		"no_records": {"fetched_at": 1700000000000}
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	snap, err := NewFileTier(path).Load()
	require.NoError(t, err)
	assert.Len(t, snap, 1)
	assert.Contains(t, snap, "good")
}

func TestFileTier_StoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	tier := NewFileTier(filepath.Join(dir, "cache.json"))

	require.NoError(t, tier.Store(Snapshot{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cache.json", entries[0].Name())
}

func TestSQLiteTier_RoundTrip(t *testing.T) {
	tier, err := OpenSQLiteTier(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { tier.Close() })

	want := Snapshot{
		"barang": {
			FetchedAt: time.Now().UnixMilli(),
			Records:   models.Collection{{"KODE": "BRG_1", "HARGA": 1000.0}},
		},
	}
	require.NoError(t, tier.Store(want))

	got, err := tier.Load()
	require.NoError(t, err)
	require.Contains(t, got, "barang")
	assert.Equal(t, want["barang"].FetchedAt, got["barang"].FetchedAt)
	assert.Equal(t, "BRG_1", got["barang"].Records[0]["KODE"])
}

func TestSQLiteTier_StoreReplacesSnapshot(t *testing.T) {
	tier, err := OpenSQLiteTier(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { tier.Close() })

	now := time.Now().UnixMilli()
	require.NoError(t, tier.Store(Snapshot{
		"penjualan": {FetchedAt: now, Records: models.Collection{}},
		"barang":    {FetchedAt: now, Records: models.Collection{}},
	}))
	require.NoError(t, tier.Store(Snapshot{
		"barang": {FetchedAt: now, Records: models.Collection{}},
	}))

	got, err := tier.Load()
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "barang")
}

func TestSQLiteTier_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	tier, err := OpenSQLiteTier(path)
	require.NoError(t, err)
	require.NoError(t, tier.Store(Snapshot{
		"pelanggan": {FetchedAt: time.Now().UnixMilli(), Records: models.Collection{{"ID": "1"}}},
	}))
	require.NoError(t, tier.Close())

	reopened, err := OpenSQLiteTier(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	got, err := reopened.Load()
	require.NoError(t, err)
	assert.Contains(t, got, "pelanggan")
}
