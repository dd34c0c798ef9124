package store

import "time"

const warningsFile = "warnings.json"

type Warning struct {
	Reason string    `json:"reason"`
	Time   time.Time `json:"time"`
}

// WarningRecord tracks the moderation strikes of one user in one group.
type WarningRecord struct {
	Count    int       `json:"count"`
	Warnings []Warning `json:"warnings"`
}

func warningKey(group, user string) string {
	return group + "_" + user
}

// AddWarning appends a strike and returns the updated record.
func (d *DB) AddWarning(group, user, reason string) (WarningRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	all := make(map[string]WarningRecord)
	if err := d.readFile(warningsFile, &all); err != nil {
		return WarningRecord{}, err
	}

	record := all[warningKey(group, user)]
	record.Count++
	record.Warnings = append(record.Warnings, Warning{Reason: reason, Time: time.Now()})
	all[warningKey(group, user)] = record

	if err := d.writeFile(warningsFile, all); err != nil {
		return record, err
	}
	return record, nil
}

// Warnings returns the current record; a zero record when none exists.
func (d *DB) Warnings(group, user string) (WarningRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	all := make(map[string]WarningRecord)
	if err := d.readFile(warningsFile, &all); err != nil {
		return WarningRecord{}, err
	}
	return all[warningKey(group, user)], nil
}

// ClearWarnings removes the record entirely.
func (d *DB) ClearWarnings(group, user string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	all := make(map[string]WarningRecord)
	if err := d.readFile(warningsFile, &all); err != nil {
		return err
	}
	if _, ok := all[warningKey(group, user)]; !ok {
		return nil
	}
	delete(all, warningKey(group, user))
	return d.writeFile(warningsFile, all)
}
