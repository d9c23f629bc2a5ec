package types

// DefaultMap is a map that lazily fills missing keys with a value produced by
// defaultFunc. It is not safe for concurrent use.
//
//	byChain := NewDefaultMap[string](func() []string { return nil })
//	byChain.Set("eth", append(byChain.Get("eth"), addr))
type DefaultMap[K comparable, V any] struct {
	data        map[K]V
	defaultFunc func() V
}

// NewDefaultMap creates an empty DefaultMap.
func NewDefaultMap[K comparable, V any](defaultFunc func() V) DefaultMap[K, V] {
	return DefaultMap[K, V]{
		data:        make(map[K]V),
		defaultFunc: defaultFunc,
	}
}

// Get returns the value for key, storing and returning a default when absent.
func (d *DefaultMap[K, V]) Get(key K) V {
	val, ok := d.data[key]
	if ok {
		return val
	}

	val = d.defaultFunc()
	d.data[key] = val
	return val
}

// Set assigns val to key.
func (d *DefaultMap[K, V]) Set(key K, val V) {
	d.data[key] = val
}

// Len returns the number of keys present.
func (d *DefaultMap[K, V]) Len() int {
	return len(d.data)
}

// ToMap returns the underlying map. Mutations are visible to the DefaultMap.
func (d *DefaultMap[K, V]) ToMap() map[K]V {
	return d.data
}
