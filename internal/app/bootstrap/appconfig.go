package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// Values come from flags, CIVICHUB_* environment variables or config
// files (loaded in LoadConfig). WAFFLE's CoreConfig covers the framework
// side: ports, TLS, log level.
type AppConfig struct {
	// MongoDB
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Sessions and bearer tokens
	SessionKey    string        // signs cookies and tokens; 32+ chars
	SessionName   string        // cookie name
	SessionDomain string        // blank means current host
	TokenTTL      time.Duration // lifetime of cookies and tokens

	// BaseURL is the public origin; the Google callback hangs off it.
	BaseURL     string
	CORSOrigins []string

	// Google sign-in; disabled when the client id is blank.
	GoogleClientID     string
	GoogleClientSecret string

	// Participation
	EnforceCapacity  bool
	PointsPerMission int64

	// ChatPollInterval paces live chat on deployments without change streams.
	ChatPollInterval time.Duration
	// OAuthStateSweep is how often expired sign-in states are removed.
	OAuthStateSweep time.Duration

	// Account auditing: all, db, log or off. AuditRetention of zero keeps
	// events forever.
	AuditLog       string
	AuditRetention time.Duration

	// Sign-in throttling per minute per IP and per 5 minutes per email.
	// Zero for both disables it.
	LoginIPAttempts    int
	LoginEmailAttempts int
}
