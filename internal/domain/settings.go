package domain

import "time"

// Settings holds site-wide configuration editable by admins.
type Settings struct {
	SiteName        string
	SupportEmail    string
	LogoURL         string
	MaintenanceMode bool
	UpdatedAt       time.Time
}
