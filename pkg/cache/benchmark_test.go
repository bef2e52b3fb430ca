package cache

import (
	"fmt"
	"testing"
)

func BenchmarkCacheLookup(b *testing.B) {
	c := New(Options{MaxSize: 10000})
	for i := 0; i < 1000; i++ {
		c.Store(fmt.Sprintf("/src/file%d.py", i), sampleStatics("h", 1, 2, 3, 4, 5))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Lookup("/src/file999.py", "h")
	}
}

func BenchmarkCacheStore(b *testing.B) {
	c := New(Options{MaxSize: 10000})
	statics := sampleStatics("h", 1, 2, 3, 4, 5)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Store(fmt.Sprintf("/src/file%d.py", i), statics)
	}
}
