package models

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// IDPool hands out entity and handler ids. Released ids are handed out again
// smallest first so that replaying the same edits yields the same ids.
type IDPool struct {
	mutex    sync.Mutex
	last     uint32
	released roaring.Bitmap
}

// New returns the smallest released id, or the next unused one.
func (p *IDPool) New() uint32 {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.released.IsEmpty() {
		id := p.released.Minimum()
		p.released.Remove(id)
		return id
	}

	p.last++
	return p.last
}

// Release makes id available to New again. Ids the pool never issued are
// ignored.
func (p *IDPool) Release(id uint32) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if id == 0 || id > p.last {
		return
	}
	p.released.Add(id)
}

// InUse returns how many issued ids have not been released.
func (p *IDPool) InUse() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return int(uint64(p.last) - p.released.GetCardinality())
}
