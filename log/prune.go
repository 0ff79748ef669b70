package log

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bgm-tracker/tracker/filesystem"
	"github.com/bgm-tracker/tracker/where"
)

// Retention is how long daily log files are kept.
const Retention = 14 * 24 * time.Hour

// CollectGarbage removes log files older than Retention.
func CollectGarbage() {
	prune(where.Logs(), time.Now().Add(-Retention))
}

func prune(dir string, before time.Time) {
	fs := filesystem.API()
	_ = fs.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || filepath.Ext(path) != ".log" {
			return nil
		}
		if info.ModTime().Before(before) {
			_ = fs.Remove(path)
		}
		return nil
	})
}
