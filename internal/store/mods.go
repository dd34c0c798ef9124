package store

const modsFile = "mods.json"

// Moderators are stored as bare phone numbers.

func (d *DB) Moderators() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moderatorsLocked()
}

func (d *DB) moderatorsLocked() ([]string, error) {
	var mods []string
	if err := d.readFile(modsFile, &mods); err != nil {
		return nil, err
	}
	return mods, nil
}

// AddModerator returns false when the number was already listed.
func (d *DB) AddModerator(number string) (bool, error) {
	if number == "" {
		return false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	mods, err := d.moderatorsLocked()
	if err != nil {
		return false, err
	}
	for _, m := range mods {
		if m == number {
			return false, nil
		}
	}
	mods = append(mods, number)
	return true, d.writeFile(modsFile, mods)
}

// RemoveModerator returns false when the number was not listed.
func (d *DB) RemoveModerator(number string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	mods, err := d.moderatorsLocked()
	if err != nil {
		return false, err
	}

	kept := mods[:0]
	removed := false
	for _, m := range mods {
		if m == number {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	if !removed {
		return false, nil
	}
	return true, d.writeFile(modsFile, kept)
}

func (d *DB) IsModerator(number string) bool {
	mods, err := d.Moderators()
	if err != nil {
		return false
	}
	for _, m := range mods {
		if m == number {
			return true
		}
	}
	return false
}
