package replay

import (
	"sync"

	"marksix-lab/internal/simulation"
)

// Cache holds the most recent run of a session. Only one configuration stays
// hot: publishing a run replaces the previous one.
type Cache struct {
	mu        sync.RWMutex
	datasetID string
	run       *simulation.Run
}

// Get returns the cached run when it was produced for datasetID and configKey.
func (c *Cache) Get(datasetID, configKey string) (*simulation.Run, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.run == nil || c.datasetID != datasetID || c.run.Key != configKey {
		return nil, false
	}
	return c.run, true
}

// Latest returns the cached run for datasetID regardless of its config.
func (c *Cache) Latest(datasetID string) (*simulation.Run, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.run == nil || c.datasetID != datasetID {
		return nil, false
	}
	return c.run, true
}

// Put publishes a completed run.
func (c *Cache) Put(datasetID string, run *simulation.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.datasetID = datasetID
	c.run = run
}

// Clear drops the cached run.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.datasetID = ""
	c.run = nil
}
