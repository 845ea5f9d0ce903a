package tegaki

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/gogpu/tegaki/gpucore"
	"github.com/gogpu/tegaki/internal/cache"
)

// fieldKey identifies a distance field: the layer it was drawn on and a
// fingerprint of everything the field depends on.
type fieldKey struct {
	layer string
	sum   uint64
}

// cachedField is an encoded distance field kept on the host.
type cachedField struct {
	texels []byte // vec4<f32> field texels as uploaded to the field buffer
	layout layout
}

// fieldCache keeps recent distance fields per layer. A nil *fieldCache is
// a disabled cache.
type fieldCache struct {
	lru *cache.Cache[fieldKey, *cachedField]
}

func newFieldCache(size int) *fieldCache {
	if size <= 0 {
		return nil
	}
	return &fieldCache{lru: cache.New[fieldKey, *cachedField](size)}
}

// key fingerprints the texel-space seeds and the field parameters. It
// reports false when the stroke cannot be cached.
func (c *fieldCache) key(layer string, seeds []gpucore.EdgeSeed, l layout) (fieldKey, bool) {
	if c == nil || layer == "" {
		return fieldKey{}, false
	}
	h := fnv.New64a()
	var buf [8]byte
	put := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:4], v)
		_, _ = h.Write(buf[:4])
	}
	put(uint32(l.width))  //nolint:gosec // bounded by MaxTextureSize
	put(uint32(l.height)) //nolint:gosec // bounded by MaxTextureSize
	put(uint32(l.iterations))
	put(math.Float32bits(l.rangeTexels))
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(l.scale))
	_, _ = h.Write(buf[:])
	for _, s := range seeds {
		put(math.Float32bits(s.AX))
		put(math.Float32bits(s.AY))
		put(math.Float32bits(s.BX))
		put(math.Float32bits(s.BY))
		put(math.Float32bits(s.HalfWidth))
	}
	return fieldKey{layer: layer, sum: h.Sum64()}, true
}

func (c *fieldCache) get(k fieldKey) (*cachedField, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(k)
}

func (c *fieldCache) put(k fieldKey, f *cachedField) {
	if c == nil {
		return
	}
	c.lru.Set(k, f)
}

func (c *fieldCache) invalidateLayer(layer string) int {
	if c == nil {
		return 0
	}
	return c.lru.DeleteFunc(func(k fieldKey) bool { return k.layer == layer })
}

func (c *fieldCache) clear() {
	if c == nil {
		return
	}
	c.lru.Clear()
}

// stats returns the number of cached fields and how many were evicted.
func (c *fieldCache) stats() (entries int, evictions uint64) {
	if c == nil {
		return 0, 0
	}
	s := c.lru.Stats()
	return s.Len, s.Evictions
}
