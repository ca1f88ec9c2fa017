package field

// Buffer is a pooled, per-element typed output of one field materialize
// walk (spec §4.8 "writes a pooled typed buffer and its length").
type Buffer struct {
	Data []float64
	pool *Pool
}

// Release returns the buffer to its owning pool. Safe to call more than
// once; a nil pool (a buffer not sourced from a Pool, e.g. in a test) is
// a no-op.
func (b *Buffer) Release() {
	if b == nil || b.pool == nil || b.Data == nil {
		return
	}
	b.pool.put(b.Data)
	b.Data = nil
	b.pool = nil
}

// Pool hands out []float64 buffers sized in powers of two, bucketed by
// capacity, so repeated materialize walks over domains of similar size
// don't churn the allocator every frame (spec §5 "bufferPool owned
// exclusively by the materializer").
type Pool struct {
	buckets map[int][][]float64
}

func NewPool() *Pool {
	return &Pool{buckets: make(map[int][][]float64)}
}

func bucketSize(n int) int {
	size := 16
	for size < n {
		size *= 2
	}
	return size
}

// Get checks out a buffer with length n, reusing a pooled backing array
// when one of sufficient capacity is available.
func (p *Pool) Get(n int) *Buffer {
	bucketCap := bucketSize(n)
	bucket := p.buckets[bucketCap]
	if len(bucket) > 0 {
		buf := bucket[len(bucket)-1]
		p.buckets[bucketCap] = bucket[:len(bucket)-1]
		buf = buf[:n]
		for i := range buf {
			buf[i] = 0
		}
		return &Buffer{Data: buf, pool: p}
	}
	return &Buffer{Data: make([]float64, n, bucketCap), pool: p}
}

func (p *Pool) put(data []float64) {
	bucketCap := cap(data)
	p.buckets[bucketCap] = append(p.buckets[bucketCap], data[:0])
}
