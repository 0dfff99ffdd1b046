package browser

import (
	"strconv"

	"github.com/shirou/gopsutil/v4/mem"
)

// Config controls Cortex's bounded browser-fallback pool.
type Config struct {
	PoolSize       string // "auto" or an integer string
	PageTimeout    int    // per-page wall clock, seconds
	MaxLifetimeMin int    // instance recycle age, minutes
	MaxIdleMin     int    // instance recycle idle, minutes
	MaxPages       int    // instance recycle page count
	ChromiumPath   string // empty lets chromedp locate a binary itself
}

func (c *Config) applyDefaults() {
	if c.PageTimeout <= 0 {
		c.PageTimeout = 20
	}
	if c.MaxLifetimeMin <= 0 {
		c.MaxLifetimeMin = 30
	}
	if c.MaxIdleMin <= 0 {
		c.MaxIdleMin = 5
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 50
	}
	if c.PoolSize == "" {
		c.PoolSize = "auto"
	}
}

// poolSize determines how many Chrome instances to run, following the
// teacher's (total RAM - 2GB) / 500MB-per-instance formula.
func (c *Config) poolSize() int {
	if c.PoolSize != "auto" {
		if n, err := strconv.Atoi(c.PoolSize); err == nil && n > 0 {
			return n
		}
	}

	var totalRAM uint64 = 8 * 1024 * 1024 * 1024 // 8GB fallback
	if v, err := mem.VirtualMemory(); err == nil {
		totalRAM = v.Total
	}

	reserved := uint64(2 * 1024 * 1024 * 1024)
	if totalRAM <= reserved {
		return 2
	}
	perInstance := uint64(500 * 1024 * 1024)
	size := int((totalRAM - reserved) / perInstance)

	if size < 2 {
		size = 2
	}
	if size > 20 {
		size = 20 // Cortex runs a single local mapping service, not an edge fleet: lower ceiling than the teacher's 50
	}
	return size
}
