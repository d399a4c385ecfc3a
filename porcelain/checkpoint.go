package porcelain

import (
	"github.com/flanksource/commons/logger"

	"github.com/jwiegley/dirscan/plumbing"
	"github.com/jwiegley/dirscan/types"
)

// Checkpointer accumulates the number of bytes hashed during a scan and
// forces a mid-scan atomic save of the state file once ThresholdBytes have
// been streamed through the checksum, so a scan interrupted partway through
// a very large tree doesn't lose everything it had already reconciled.
type Checkpointer struct {
	ThresholdBytes int64
	DatabasePath   string
	TempDir        string

	scanned int64
}

// Track is passed as types.ChecksumOptions.OnBytesHashed; it accumulates
// bytes hashed and, once the threshold is crossed, saves state and resets
// the counter.
func (c *Checkpointer) Track(entries map[string]*types.Entry) func(int64) {
	return func(n int64) {
		c.scanned += n
		if c.ThresholdBytes <= 0 || c.scanned < c.ThresholdBytes {
			return
		}
		logger.Infof("checkpoint: %d bytes scanned, saving state", c.scanned)
		if err := plumbing.SaveStore(c.DatabasePath, c.TempDir, entries); err != nil {
			logger.Warnf("checkpoint save failed: %v", err)
			return
		}
		c.scanned = 0
	}
}
