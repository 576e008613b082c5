package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
)

func sampleText() entity.ExtractedText {
	return entity.ExtractedText{
		Text:       "Invoice Number: 42",
		Provenance: constants.ProvenanceNative,
		Pages:      1,
		SourceType: constants.PDF,
		Method:     constants.MethodPDFText,
		Duration:   15 * time.Millisecond,
		Warnings:   []string{"page 2: empty"},
	}
}

func TestConcurrentCallersComputeOnce(t *testing.T) {
	c := New(NewMemoryStore(8), nil)
	doc := entity.NewRawDocument("a.pdf", []byte("%PDF-1.4 same bytes"))

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (entity.ExtractedText, error) {
		calls.Add(1)
		<-release
		return sampleText(), nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]entity.ExtractedText, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, _, err := c.ExtractedText(context.Background(), doc, compute)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, sampleText(), r)
	}

	got, hit, err := c.ExtractedText(context.Background(), doc, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sampleText(), got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestComputeErrorIsNotCached(t *testing.T) {
	c := New(NewMemoryStore(8), nil)
	doc := entity.NewRawDocument("a.png", []byte("png"))
	boom := errors.New("tesseract crashed")

	_, _, err := c.ExtractedText(context.Background(), doc, func(context.Context) (entity.ExtractedText, error) {
		return entity.ExtractedText{}, boom
	})
	assert.ErrorIs(t, err, boom)

	got, hit, err := c.ExtractedText(context.Background(), doc, func(context.Context) (entity.ExtractedText, error) {
		return sampleText(), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "Invoice Number: 42", got.Text)
}

func TestSameBytesUnderAnotherFormatMiss(t *testing.T) {
	c := New(NewMemoryStore(8), nil)
	data := []byte("identical bytes")
	var calls atomic.Int32
	compute := func(context.Context) (entity.ExtractedText, error) {
		calls.Add(1)
		return sampleText(), nil
	}

	_, _, err := c.ExtractedText(context.Background(), entity.NewRawDocument("a.pdf", data), compute)
	require.NoError(t, err)
	_, hit, err := c.ExtractedText(context.Background(), entity.NewRawDocument("a.png", data), compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(2), calls.Load())

	_, hit, err = c.ExtractedText(context.Background(), entity.NewRawDocument("a.txt", data), func(context.Context) (entity.ExtractedText, error) {
		return entity.ExtractedText{}, common.UnsupportedFormat("txt")
	})
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.False(t, hit)
	assert.Equal(t, 2, c.Store().(*MemoryStore).Len())
}

func TestMemoryStoreEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(2)
	require.NoError(t, m.Put(ctx, "a", []byte("1")))
	require.NoError(t, m.Put(ctx, "b", []byte("2")))
	_, ok, _ := m.Get(ctx, "a")
	require.True(t, ok)
	require.NoError(t, m.Put(ctx, "c", []byte("3")))

	_, ok, _ = m.Get(ctx, "b")
	assert.False(t, ok)
	v, ok, _ := m.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)
	assert.Equal(t, 2, m.Len())

	v[0] = 'x'
	again, _, _ := m.Get(ctx, "a")
	assert.Equal(t, []byte("1"), again)
}

func TestMemoryStoreDefaultsSize(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(0)
	for i := 0; i < DefaultMaxEntries+10; i++ {
		require.NoError(t, m.Put(ctx, fmt.Sprintf("k%d", i), []byte("v")))
	}
	assert.Equal(t, DefaultMaxEntries, m.Len())
	_, ok, _ := m.Get(ctx, "k0")
	assert.False(t, ok)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dsn := "sqlite:" + filepath.Join(t.TempDir(), "cache.db")
	s, err := OpenSQL(ctx, dsn, "", nil)
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "k", []byte(`{"v":1}`)))
	require.NoError(t, s.Put(ctx, "k", []byte(`{"v":2}`)))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"v":2}`, string(v))

	n, err := s.Purge(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, s.HealthCheck(ctx, time.Second))
}

func TestSQLiteBackedCacheSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := common.CacheConfig{DSN: "sqlite:" + filepath.Join(t.TempDir(), "cache.db")}
	doc := entity.NewRawDocument("scan.pdf", []byte("bytes"))

	c, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	_, _, err = c.ExtractedText(ctx, doc, func(context.Context) (entity.ExtractedText, error) { return sampleText(), nil })
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer c.Close()
	got, hit, err := c.ExtractedText(ctx, doc, func(context.Context) (entity.ExtractedText, error) {
		t.Fatal("compute must not run on a warm cache")
		return entity.ExtractedText{}, nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sampleText(), got)
}

func TestOpenSQLRejectsBadInput(t *testing.T) {
	_, err := OpenSQL(context.Background(), "mysql://x", "", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = OpenSQL(context.Background(), "sqlite::memory:", "drop table;", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = OpenSQL(context.Background(), "sqlite::memory:", strings.Repeat("t", maxTableName+1), nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Equal(t, common.CodeInvalidInput, common.CodeOf(err))
}

func TestOpenSQLCustomTableIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := "sqlite:" + filepath.Join(t.TempDir(), "cache.db")
	for i := 0; i < 2; i++ {
		s, err := OpenSQL(ctx, dsn, "doc_text_cache", nil)
		require.NoError(t, err)
		require.NoError(t, s.Put(ctx, "k", []byte("v")))
		require.NoError(t, s.Close())
	}
}
