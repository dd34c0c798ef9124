package store

const groupsFile = "groups.json"

// Enforcement actions for the protection policies. Setting an action through
// the Set*Action helpers auto-enables the paired flag.
const (
	ActionDelete = "delete"
	ActionKick   = "kick"
)

// GroupSettings is the per-group feature record, created lazily with defaults
// on first read.
type GroupSettings struct {
	Antilink               bool   `json:"antilink"`
	AntilinkAction         string `json:"antilinkAction"`
	Antitag                bool   `json:"antitag"`
	AntitagAction          string `json:"antitagAction"`
	Antiall                bool   `json:"antiall"`
	Antigroupmention       bool   `json:"antigroupmention"`
	AntigroupmentionAction string `json:"antigroupmentionAction"`
	Welcome                bool   `json:"welcome"`
	WelcomeMessage         string `json:"welcomeMessage"`
	Goodbye                bool   `json:"goodbye"`
	GoodbyeMessage         string `json:"goodbyeMessage"`
	Autosticker            bool   `json:"autosticker"`
}

func DefaultGroupSettings() GroupSettings {
	return GroupSettings{
		AntilinkAction:         ActionDelete,
		AntitagAction:          ActionDelete,
		AntigroupmentionAction: ActionDelete,
		WelcomeMessage:         "Welcome @user 👋",
		GoodbyeMessage:         "Goodbye @user 👋",
	}
}

func (s *GroupSettings) SetAntilinkAction(action string) {
	s.AntilinkAction = action
	s.Antilink = true
}

func (s *GroupSettings) SetAntitagAction(action string) {
	s.AntitagAction = action
	s.Antitag = true
}

func (s *GroupSettings) SetAntigroupmentionAction(action string) {
	s.AntigroupmentionAction = action
	s.Antigroupmention = true
}

func (s *GroupSettings) normalize() {
	if s.AntilinkAction == "" {
		s.AntilinkAction = ActionDelete
	}
	if s.AntitagAction == "" {
		s.AntitagAction = ActionDelete
	}
	if s.AntigroupmentionAction == "" {
		s.AntigroupmentionAction = ActionDelete
	}
}

// GroupSettings returns the settings record for a group, creating and
// persisting the defaults on first access.
func (d *DB) GroupSettings(group string) (GroupSettings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	all := make(map[string]GroupSettings)
	if err := d.readFile(groupsFile, &all); err != nil {
		return DefaultGroupSettings(), err
	}

	settings, ok := all[group]
	if !ok {
		settings = DefaultGroupSettings()
		all[group] = settings
		if err := d.writeFile(groupsFile, all); err != nil {
			return settings, err
		}
		return settings, nil
	}

	settings.normalize()
	return settings, nil
}

// UpdateGroupSettings applies a partial mutation to a group's settings and
// persists the merged record.
func (d *DB) UpdateGroupSettings(group string, mutate func(*GroupSettings)) (GroupSettings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	all := make(map[string]GroupSettings)
	if err := d.readFile(groupsFile, &all); err != nil {
		return GroupSettings{}, err
	}

	settings, ok := all[group]
	if !ok {
		settings = DefaultGroupSettings()
	}
	settings.normalize()

	mutate(&settings)
	all[group] = settings
	if err := d.writeFile(groupsFile, all); err != nil {
		return settings, err
	}
	return settings, nil
}
