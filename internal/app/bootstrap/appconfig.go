// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig carries the
// framework-level settings (ports, TLS, logging, CORS, body limits); this
// struct carries everything specific to SalesMake and is passed to every
// lifecycle hook.
type AppConfig struct {
	// Record store
	StoreBackend     string // "mongo" or "memory"
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Sessions
	SessionKey    string        // Secret key for signing session cookies
	SessionName   string        // Cookie name (default: salesmake-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionTTL    time.Duration // Identity session lifetime
	CSRFKey       string        // 32-byte key for gorilla/csrf
	SweepInterval time.Duration // How often expired sessions are swept

	// Invitation email
	MailFrom     string
	MailFromName string
	BaseURL      string // e.g., "https://salesmake.app"; invitation links point here

	// AdminEmail is invited (or promoted) to admin at startup when set.
	AdminEmail string
}
