package queue

import (
	"fmt"

	"obslog/internal/config"
	"obslog/internal/logbook"
)

// NewQueueFromConfig creates an ImportQueue implementation based on the config type.
func NewQueueFromConfig(cfg config.QueueConfig) (logbook.ImportQueue, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryQueue(), nil
	case "filesystem":
		if cfg.QueueDir == "" {
			return nil, fmt.Errorf("filesystem queue requires queue_dir to be set")
		}
		return NewFileSystemQueue(cfg.QueueDir)
	default:
		return nil, fmt.Errorf("unknown queue type: %s", cfg.Type)
	}
}
