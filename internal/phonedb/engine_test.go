package phonedb

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Record layout of the shared test fixture:
//
//	abs offset 8:  Guangdong|Shenzhen|518000|0755
//	abs offset 39: Beijing|Beijing|100000|010
//	abs offset 66: Zhejiang|Hangzhou|310000|0571
var testRecords = []byte(
	"Guangdong|Shenzhen|518000|0755\x00" +
		"Beijing|Beijing|100000|010\x00" +
		"Zhejiang|Hangzhou|310000|0571\x00")

var testEntries = []indexEntry{
	{prefix: 1380013, recordsOffset: 8, carrierCode: 1},
	{prefix: 1390000, recordsOffset: 39, carrierCode: 2},
	{prefix: 1570000, recordsOffset: 66, carrierCode: 3},
	{prefix: 1880000, recordsOffset: 8, carrierCode: 9}, // invalid carrier code
}

// newTestEngine writes the fixture database to a temp file and loads
// an engine from it.
func newTestEngine(t *testing.T, cacheEnabled bool, cacheCapacity int) *Engine {
	t.Helper()

	path := filepath.Join(t.TempDir(), "phone.dat")
	image := buildImage(t, "2301", testRecords, testEntries)
	require.NoError(t, os.WriteFile(path, image, 0644))

	eng, err := Load(path, cacheEnabled, cacheCapacity)
	require.NoError(t, err)
	return eng
}

func TestLoad(t *testing.T) {
	eng := newTestEngine(t, true, 100)

	assert.Equal(t, "2301", eng.Version())
	assert.Equal(t, 4, eng.IndexCount())
	assert.Zero(t, eng.TotalQueries())
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.dat"), true, 100)
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "phone.dat")
		require.NoError(t, os.WriteFile(path, []byte("xx"), 0644))

		_, err := Load(path, true, 100)
		assert.ErrorIs(t, err, ErrInvalidDatabase)
	})

	t.Run("zero capacity with cache enabled", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "phone.dat")
		require.NoError(t, os.WriteFile(path, buildImage(t, "2301", testRecords, testEntries), 0644))

		_, err := Load(path, true, 0)
		require.Error(t, err)
	})
}

func TestResolve_Success(t *testing.T) {
	eng := newTestEngine(t, true, 100)

	rec, err := eng.Resolve("13800138000")
	require.NoError(t, err)
	assert.Equal(t, &Record{
		Province: "Guangdong",
		City:     "Shenzhen",
		ZipCode:  "518000",
		AreaCode: "0755",
		Carrier:  "China Mobile",
	}, rec)
}

func TestResolve_TrailingDigitsIgnored(t *testing.T) {
	eng := newTestEngine(t, false, 0)

	// Any query sharing the first 7 digits resolves identically.
	for _, phone := range []string{"1380013", "13800131234", "138001399", "1380013000"} {
		rec, err := eng.Resolve(phone)
		require.NoError(t, err, "phone %s", phone)
		assert.Equal(t, "Shenzhen", rec.City, "phone %s", phone)
	}
}

func TestResolve_InvalidLength(t *testing.T) {
	eng := newTestEngine(t, true, 100)

	for _, phone := range []string{"", "1", "138001", "138001380001", "1234567890123"} {
		_, err := eng.Resolve(phone)
		assert.ErrorIs(t, err, ErrInvalidLength, "phone %q", phone)
	}

	// Rejected queries never reach the cache.
	assert.Zero(t, eng.CacheStats().Size)
	// But they still count as queries.
	assert.Equal(t, uint64(5), eng.TotalQueries())
}

func TestResolve_NotFound(t *testing.T) {
	eng := newTestEngine(t, true, 100)

	_, err := eng.Resolve("9990000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_NonDigitPrefix(t *testing.T) {
	eng := newTestEngine(t, true, 100)

	_, err := eng.Resolve("138abc7")
	assert.ErrorIs(t, err, ErrInvalidDatabase)
}

func TestResolve_InvalidCarrierCode(t *testing.T) {
	eng := newTestEngine(t, true, 100)

	_, err := eng.Resolve("18800001111")
	assert.ErrorIs(t, err, ErrInvalidCarrierCode)
}

func TestResolve_CacheHitIsIdempotent(t *testing.T) {
	eng := newTestEngine(t, true, 100)

	first, err := eng.Resolve("13800138000")
	require.NoError(t, err)
	second, err := eng.Resolve("13800138000")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, uint64(2), eng.TotalQueries())
	assert.Equal(t, uint64(1), eng.CacheHits())
	assert.Equal(t, 1, eng.CacheStats().Size)
}

func TestResolve_CacheDisabled(t *testing.T) {
	eng := newTestEngine(t, false, 0)

	for i := 0; i < 3; i++ {
		_, err := eng.Resolve("13800138000")
		require.NoError(t, err)
	}

	assert.Equal(t, uint64(3), eng.TotalQueries())
	assert.Zero(t, eng.CacheHits())
	assert.Zero(t, eng.CacheStats().Size)
	assert.Zero(t, eng.CacheStats().Capacity)
}

func TestResolve_CacheReturnsCopies(t *testing.T) {
	eng := newTestEngine(t, true, 100)

	first, err := eng.Resolve("13800138000")
	require.NoError(t, err)
	first.City = "mutated"

	second, err := eng.Resolve("13800138000")
	require.NoError(t, err)
	assert.Equal(t, "Shenzhen", second.City)
}

func TestResolve_ConcurrentSameQuery(t *testing.T) {
	const goroutines = 50
	eng := newTestEngine(t, true, 100)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := eng.Resolve("13800138000")
			assert.NoError(t, err)
			assert.Equal(t, "Shenzhen", rec.City)
		}()
	}
	wg.Wait()

	// No lost counter updates.
	assert.Equal(t, uint64(goroutines), eng.TotalQueries())
	assert.Equal(t, 1, eng.CacheStats().Size)
}

func TestClearCache(t *testing.T) {
	eng := newTestEngine(t, true, 100)

	_, err := eng.Resolve("13800138000")
	require.NoError(t, err)
	require.Equal(t, 1, eng.CacheStats().Size)

	require.NoError(t, eng.ClearCache())
	assert.Zero(t, eng.CacheStats().Size)
	// Clearing the cache does not reset the counters.
	assert.Equal(t, uint64(1), eng.TotalQueries())
}

func TestClearCache_Disabled(t *testing.T) {
	eng := newTestEngine(t, false, 0)

	assert.ErrorIs(t, eng.ClearCache(), ErrCacheDisabled)
	assert.ErrorIs(t, eng.SetCacheSize(10), ErrCacheDisabled)
}

func TestSetCacheSize_OnlyClears(t *testing.T) {
	eng := newTestEngine(t, true, 100)

	_, err := eng.Resolve("13800138000")
	require.NoError(t, err)
	require.Equal(t, 1, eng.CacheStats().Size)

	require.NoError(t, eng.SetCacheSize(5))
	assert.Zero(t, eng.CacheStats().Size)
	// Capacity is unchanged: resize is clear-only.
	assert.Equal(t, 100, eng.CacheStats().Capacity)
}

func TestStats(t *testing.T) {
	eng := newTestEngine(t, true, 100)

	_, _ = eng.Resolve("13800138000")
	_, _ = eng.Resolve("13800138000")
	_, _ = eng.Resolve("123") // invalid length still counts

	stats := eng.Stats()
	assert.Equal(t, 4, stats.IndexCount)
	assert.Equal(t, uint64(3), stats.TotalQueries)
	assert.Equal(t, uint64(1), stats.CacheHits)
	assert.InDelta(t, 100.0/3.0, stats.CacheHitRate, 0.01)
}

func TestCacheHitRate_NoQueries(t *testing.T) {
	eng := newTestEngine(t, true, 100)
	assert.Zero(t, eng.CacheHitRate())
}

func TestParsePrefix(t *testing.T) {
	tests := []struct {
		phone   string
		want    int32
		wantErr bool
	}{
		{phone: "1380013", want: 1380013},
		{phone: "13800138000", want: 1380013},
		{phone: "0000000", want: 0},
		{phone: "9999999", want: 9999999},
		{phone: "138abc7", wantErr: true},
		{phone: "a380013", wantErr: true},
		{phone: "138 013", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			got, err := parsePrefix(tt.phone)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDatabase)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocate(t *testing.T) {
	eng := newTestEngine(t, false, 0)

	entry, ok := eng.locate(1390000)
	require.True(t, ok)
	assert.Equal(t, int32(39), entry.recordsOffset)
	assert.Equal(t, uint8(2), entry.carrierCode)

	_, ok = eng.locate(1234567)
	assert.False(t, ok)
	_, ok = eng.locate(9999999)
	assert.False(t, ok)
}

func TestWalk(t *testing.T) {
	eng := newTestEngine(t, false, 0)

	var prefixes []int32
	var cities []string
	err := eng.Walk(func(prefix int32, carrierCode uint8, rec *Record) error {
		prefixes = append(prefixes, prefix)
		cities = append(cities, rec.City)
		return nil
	})

	// The fixture's 4th entry carries carrier code 9, so Walk stops
	// there with an error after visiting the three valid entries.
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCarrierCode)
	assert.Equal(t, []int32{1380013, 1390000, 1570000}, prefixes)
	assert.Equal(t, []string{"Shenzhen", "Beijing", "Hangzhou"}, cities)
}
