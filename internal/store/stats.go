package store

import "time"

const statsFile = "groupStats.json"

// GroupStats accumulates message counters per group: a total, per-user
// counts, and daily buckets that a periodic routine trims.
type GroupStats struct {
	Total  int            `json:"total"`
	ByUser map[string]int `json:"byUser"`
	ByDay  map[string]int `json:"byDay"`
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// CountMessage records one message from user in group.
func (d *DB) CountMessage(group, user string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	all := make(map[string]GroupStats)
	if err := d.readFile(statsFile, &all); err != nil {
		return err
	}

	stats := all[group]
	if stats.ByUser == nil {
		stats.ByUser = make(map[string]int)
	}
	if stats.ByDay == nil {
		stats.ByDay = make(map[string]int)
	}
	stats.Total++
	stats.ByUser[user]++
	stats.ByDay[dayKey(time.Now())]++
	all[group] = stats

	return d.writeFile(statsFile, all)
}

func (d *DB) Stats(group string) (GroupStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	all := make(map[string]GroupStats)
	if err := d.readFile(statsFile, &all); err != nil {
		return GroupStats{}, err
	}
	return all[group], nil
}

// RotateStats drops daily buckets older than keepDays.
func (d *DB) RotateStats(keepDays int) error {
	if keepDays <= 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	all := make(map[string]GroupStats)
	if err := d.readFile(statsFile, &all); err != nil {
		return err
	}

	cutoff := dayKey(time.Now().AddDate(0, 0, -keepDays))
	changed := false
	for group, stats := range all {
		for day := range stats.ByDay {
			if day < cutoff {
				delete(stats.ByDay, day)
				changed = true
			}
		}
		all[group] = stats
	}
	if !changed {
		return nil
	}
	return d.writeFile(statsFile, all)
}
