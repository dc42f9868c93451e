package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sentrywatch/siemcore/internal/logging"
	"github.com/sentrywatch/siemcore/internal/model"
)

// excludedFields are stripped from Event.Data before fingerprinting because
// they vary between otherwise-identical re-deliveries of the same log line
// (collector retries, clock jitter, per-delivery sequence counters).
var excludedFields = map[string]bool{
	"timestamp":    true,
	"id":           true,
	"sequence_num": true,
}

// Deduplicator suppresses events that are byte-for-byte duplicates (modulo
// excludedFields) of one already seen within the configured window.
type Deduplicator struct {
	cache  FingerprintCache
	window time.Duration
	cron   *cron.Cron
}

// Config configures the Deduplicator.
type Config struct {
	// Capacity is the approximate number of unique fingerprints to retain.
	Capacity int
	// Window is how long a fingerprint is remembered.
	Window time.Duration
	// SweepSchedule is a standard cron expression for the background sweep.
	// Defaults to every 5 minutes.
	SweepSchedule string
}

// New builds a Deduplicator and starts its background sweep goroutine.
// Call Stop to release it.
func New(cfg Config) *Deduplicator {
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = "*/5 * * * *"
	}

	d := &Deduplicator{
		cache:  NewFingerprintCache(cfg.Capacity, cfg.Window),
		window: cfg.Window,
	}

	d.cron = cron.New()
	_, _ = d.cron.AddFunc(cfg.SweepSchedule, func() {
		removed := d.cache.Sweep()
		if removed > 0 {
			logging.Info().Int("removed", removed).Msg("dedup cache sweep")
		}
	})
	d.cron.Start()

	return d
}

// Stop halts the background sweeper.
func (d *Deduplicator) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

// IsDuplicate reports whether ev has already been seen within the window,
// recording its fingerprint as a side effect when it has not.
func (d *Deduplicator) IsDuplicate(ctx context.Context, ev *model.Event) (bool, error) {
	fp, err := Fingerprint(ev)
	if err != nil {
		return false, err
	}
	return d.cache.Seen(fp), nil
}

// Size reports the number of fingerprints currently retained.
func (d *Deduplicator) Size() int {
	return d.cache.Len()
}

// Fingerprint computes the sha256 fingerprint of an event's identity
// content: source, event type, and its data fields excluding the ones that
// legitimately vary across redeliveries of the same underlying log line.
func Fingerprint(ev *model.Event) (string, error) {
	data := make(map[string]any, len(ev.Data))
	for k, v := range ev.Data {
		if excludedFields[k] {
			continue
		}
		data[k] = v
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make(map[string]any, len(data))
	for _, k := range keys {
		ordered[k] = data[k]
	}

	payload := struct {
		Source    string         `json:"source"`
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}{
		Source:    ev.Source,
		EventType: ev.EventType,
		Data:      ordered,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
