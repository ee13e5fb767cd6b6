package state

func pauseKey(module string) []byte {
	return storageKey("pause", module)
}

// GetModulePaused reports whether the named module has been halted.
func (m *Manager) GetModulePaused(module string) (bool, error) {
	var row uint8
	found, err := m.getRow(pauseKey(module), &row)
	if err != nil {
		return false, err
	}
	return found && row == 1, nil
}

// SetModulePaused toggles the pause flag. Resuming removes the row.
func (m *Manager) SetModulePaused(module string, paused bool) error {
	if !paused {
		return m.db.Delete(pauseKey(module))
	}
	return m.putRow(pauseKey(module), uint8(1))
}

// IsPaused satisfies the pause view the engines guard on. Read errors count
// as not paused so a broken row cannot brick the module.
func (m *Manager) IsPaused(module string) bool {
	paused, err := m.GetModulePaused(module)
	if err != nil {
		return false
	}
	return paused
}
