package biz

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"imagesearch/internal/conf"
	"imagesearch/internal/pkg/hash"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache_ConcurrentMissesComputeOnce(t *testing.T) {
	store := newMemEmbeddingStore()
	cache := NewEmbeddingCache(store, &conf.Search{}, testLogger())
	img := decodePNG(t, solidPNG(t, color.NRGBA{R: 200, A: 255}))

	var calls atomic.Int32
	release := make(chan struct{})
	embed := func(context.Context, image.Image) ([]float32, error) {
		calls.Add(1)
		<-release
		return []float32{3, 4}, nil
	}

	const n = 16
	results := make([][]float32, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = cache.GetOrCompute(context.Background(), img, embed)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.InDeltaSlice(t, []float32{0.6, 0.8}, results[i], 1e-6)
	}
	assert.Equal(t, int32(1), store.puts.Load())
}

func TestEmbeddingCache_StoreHit(t *testing.T) {
	store := newMemEmbeddingStore()
	img := decodePNG(t, solidPNG(t, color.NRGBA{G: 90, A: 255}))
	store.vecs[hash.OfImage(img)] = []float32{1, 0}
	cache := NewEmbeddingCache(store, &conf.Search{}, testLogger())

	vec, err := cache.GetOrCompute(context.Background(), img, func(context.Context, image.Image) ([]float32, error) {
		t.Fatal("embed must not run on a stored hash")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
}

func TestEmbeddingCache_SameContentDifferentEncoding(t *testing.T) {
	store := newMemEmbeddingStore()
	cache := NewEmbeddingCache(store, &conf.Search{}, testLogger())

	src := decodePNG(t, solidPNG(t, color.NRGBA{B: 60, A: 255}))
	rgba := image.NewRGBA(src.Bounds())
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			rgba.Set(x, y, src.At(x, y))
		}
	}

	var calls atomic.Int32
	embed := func(context.Context, image.Image) ([]float32, error) {
		calls.Add(1)
		return []float32{0, 2}, nil
	}
	_, err := cache.GetOrCompute(context.Background(), src, embed)
	require.NoError(t, err)
	_, err = cache.GetOrCompute(context.Background(), rgba, embed)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbeddingCache_StoreErrorRecomputes(t *testing.T) {
	store := newMemEmbeddingStore()
	store.getErr = errors.New("corrupt value")
	cache := NewEmbeddingCache(store, &conf.Search{}, testLogger())
	img := decodePNG(t, solidPNG(t, color.NRGBA{R: 10, G: 10, A: 255}))

	vec, err := cache.GetOrCompute(context.Background(), img, func(context.Context, image.Image) ([]float32, error) {
		return []float32{0, 5}, nil
	})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0, 1}, vec, 1e-6)
	assert.Equal(t, int32(1), store.puts.Load())
}

func TestEmbeddingCache_ComputeError(t *testing.T) {
	store := newMemEmbeddingStore()
	cache := NewEmbeddingCache(store, &conf.Search{}, testLogger())
	img := decodePNG(t, solidPNG(t, color.NRGBA{R: 1, A: 255}))

	_, err := cache.GetOrCompute(context.Background(), img, func(context.Context, image.Image) ([]float32, error) {
		return nil, errFake
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingCompute)
	assert.ErrorIs(t, err, errFake)
	assert.Equal(t, int32(0), store.puts.Load())
}

func TestEmbeddingCache_CallerCancelDoesNotFailOthers(t *testing.T) {
	store := newMemEmbeddingStore()
	cache := NewEmbeddingCache(store, &conf.Search{}, testLogger())
	img := decodePNG(t, solidPNG(t, color.NRGBA{R: 33, B: 33, A: 255}))

	release := make(chan struct{})
	embed := func(context.Context, image.Image) ([]float32, error) {
		<-release
		return []float32{1, 1}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := cache.GetOrCompute(ctx, img, embed)
		first <- err
	}()

	second := make(chan []float32, 1)
	go func() {
		vec, err := cache.GetOrCompute(context.Background(), img, embed)
		if err != nil {
			second <- nil
			return
		}
		second <- vec
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	vec := <-second
	require.NotNil(t, vec)
	assert.InDelta(t, 1/math.Sqrt2, vec[0], 1e-6)
}

func TestNormalize(t *testing.T) {
	v, err := Normalize([]float32{3, 0, 4})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0, 0.8}, v, 1e-6)

	_, err = Normalize(nil)
	assert.Error(t, err)
	_, err = Normalize([]float32{0, 0})
	assert.Error(t, err)
	_, err = Normalize([]float32{float32(math.Inf(1)), 1})
	assert.Error(t, err)
}
