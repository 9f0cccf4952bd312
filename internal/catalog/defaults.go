package catalog

import "github.com/ahmetcoskunkizilkaya/modqueue/internal/models"

var defaultTemplates = []models.Template{
	{
		ID:                   "spam",
		Name:                 "Spam",
		Description:          "Repeated unsolicited links or promotional content.",
		DefaultDurationHours: 72,
		DefaultScope:         models.ScopePartial,
	},
	{
		ID:                   "harassment",
		Name:                 "Harassment",
		Description:          "Targeted abuse of another user.",
		DefaultDurationHours: 168,
		DefaultScope:         models.ScopeFull,
	},
	{
		ID:                   "impersonation",
		Name:                 "Impersonation",
		Description:          "Profile pretends to be another person or brand.",
		DefaultDurationHours: 720,
		DefaultScope:         models.ScopeFull,
	},
	{
		ID:                   "scam",
		Name:                 "Scam",
		Description:          "Fraudulent links or payment requests.",
		DefaultDurationHours: models.DurationPermanent,
		FixedDuration:        true,
		DefaultScope:         models.ScopeFull,
	},
	{
		ID:                   "severe_abuse",
		Name:                 "Severe abuse",
		Description:          "Illegal or extremely harmful content.",
		DefaultDurationHours: models.DurationPermanent,
		FixedDuration:        true,
		DefaultScope:         models.ScopeFull,
	},
	{
		ID:                   "custom",
		Name:                 "Custom",
		Description:          "Staff-written reason.",
		DefaultDurationHours: 24,
		DefaultScope:         models.ScopePartial,
		RequiresCustomReason: true,
	},
}

// Defaults returns the built-in catalog.
func Defaults() *Registry {
	r := NewRegistry()
	for _, tpl := range defaultTemplates {
		if err := r.Register(tpl); err != nil {
			panic(err)
		}
	}
	return r
}
