package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// StatsSource reports store statistics.
type StatsSource interface {
	GetStats(ctx context.Context) (map[string]interface{}, error)
}

// StatsConfig holds configuration for the stats collector.
type StatsConfig struct {
	// Interval is how often store statistics are sampled.
	// Default: 1 minute
	Interval time.Duration
}

// StatsCollector periodically copies store statistics into Prometheus gauges.
type StatsCollector struct {
	source StatsSource
	config StatsConfig

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex

	last map[string]interface{}
}

// NewStatsCollector creates a new stats collector.
func NewStatsCollector(source StatsSource, config StatsConfig) *StatsCollector {
	if config.Interval == 0 {
		config.Interval = time.Minute
	}

	return &StatsCollector{
		source: source,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start begins periodic sampling. The first sample is taken immediately.
func (c *StatsCollector) Start() {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return
	}
	c.isRunning = true
	c.ticker = time.NewTicker(c.config.Interval)
	c.mu.Unlock()

	log.Printf("[StatsCollector] Started - Interval: %v", c.config.Interval)

	go func() {
		c.RunNow()
		c.run()
	}()
}

func (c *StatsCollector) run() {
	for {
		select {
		case <-c.ticker.C:
			c.RunNow()
		case <-c.stopCh:
			log.Printf("[StatsCollector] Stopped")
			return
		}
	}
}

// RunNow samples the store once and returns the statistics.
func (c *StatsCollector) RunNow() (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := c.source.GetStats(ctx)
	if err != nil {
		log.Printf("[StatsCollector] Error sampling store: %v", err)
		return nil, err
	}

	for name, value := range stats {
		if f, ok := toFloat(value); ok {
			StoreGauges.WithLabelValues(name).Set(f)
		}
	}

	c.mu.Lock()
	c.last = stats
	c.mu.Unlock()
	return stats, nil
}

// Last returns the most recent sample, or nil before the first one.
func (c *StatsCollector) Last() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Stop stops the collector.
func (c *StatsCollector) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.ticker != nil {
			c.ticker.Stop()
		}
		close(c.stopCh)
		c.isRunning = false
	})
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
