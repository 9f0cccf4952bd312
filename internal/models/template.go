package models

const (
	// DurationPermanent marks a restriction without an end.
	DurationPermanent = -1
	// DurationUnset means the caller did not pick a duration.
	DurationUnset = 0
)

// Template is a pre-configured restriction policy from the read-only catalog.
type Template struct {
	ID                   string           `yaml:"id" json:"id"`
	Name                 string           `yaml:"name" json:"name"`
	Description          string           `yaml:"description" json:"description"`
	DefaultDurationHours int              `yaml:"default_duration_hours" json:"default_duration_hours"`
	FixedDuration        bool             `yaml:"fixed_duration" json:"fixed_duration"`
	DefaultScope         RestrictionScope `yaml:"default_scope" json:"default_scope"`
	RequiresCustomReason bool             `yaml:"requires_custom_reason" json:"requires_custom_reason"`
}

// ForcesDuration reports whether caller-supplied durations are ignored.
// Permanent templates always force their duration.
func (t Template) ForcesDuration() bool {
	return t.FixedDuration || t.DefaultDurationHours == DurationPermanent
}
