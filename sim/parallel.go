package sim

import (
	"runtime"
	"sync"
)

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	entries   []Entry
	neighbors []Neighbor
}

// workChunk is a range of the active list for one worker.
type workChunk struct {
	start, end int
}

// parallelState holds the persistent worker pool used by Tick.
type parallelState struct {
	scratches  []workerScratch
	numWorkers int

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newParallelState() *parallelState {
	numWorkers := runtime.GOMAXPROCS(0)
	scratches := make([]workerScratch, numWorkers)
	for i := range scratches {
		scratches[i].entries = make([]Entry, 0, 64)
		scratches[i].neighbors = make([]Neighbor, 0, 64)
	}
	return &parallelState{
		numWorkers: numWorkers,
		scratches:  scratches,
	}
}

// startWorkers launches the worker goroutines.
func (p *parallelState) startWorkers(s *Simulation) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *parallelState) worker(s *Simulation, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.computeChunk(chunk.start, chunk.end, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// computeParallel splits the active list into one chunk per worker and
// waits for all of them.
func (s *Simulation) computeParallel(n int) {
	p := s.parallel
	if !p.running {
		p.startWorkers(s)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}

// computeChunk writes the next position of active[i0:i1] into the write
// buffer. It only reads shared state.
func (s *Simulation) computeChunk(i0, i1 int, scratch *workerScratch) {
	maxPer := int32(s.params.MaxPerClass)

	for k := i0; k < i1; k++ {
		i := s.active[k]
		self := ParticleID{Class: i / maxPer, Slot: i % maxPer}
		pos, prev := s.pos[i], s.prev[i]

		scratch.entries = s.grid.QueryRangeInto(scratch.entries[:0], pos, self)
		scratch.neighbors = scratch.neighbors[:0]
		for _, e := range scratch.entries {
			scratch.neighbors = append(scratch.neighbors, Neighbor{
				Offset: e.Pos.Sub(pos),
				Power:  float64(s.matrix.Get(int(self.Class), int(e.ID.Class))),
			})
		}

		force := s.params.NetForce(pos, prev, scratch.neighbors)
		s.next[i] = Integrate(pos, prev, force, s.params.DT)
	}
}
