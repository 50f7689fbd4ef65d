package shared

type ServerConfig struct {
	Sqlite      SqliteConfig      `mapstructure:"sqlite" validate:"required"`
	CareBuddy   CareBuddyConfig   `mapstructure:"carebuddy" validate:"required"`
	Smtp        SmtpConfig        `mapstructure:"smtp"`
	Twilio      TwilioConfig      `mapstructure:"twilio"`
	Google      GoogleConfig      `mapstructure:"google"`
	OpenWeather OpenWeatherConfig `mapstructure:"openWeather"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase" validate:"required"`
}

type CareBuddyConfig struct {
	PrivateKeyPem string         `mapstructure:"privateKeyPem" validate:"required"`
	Cron          CronConfig     `mapstructure:"cron" validate:"required"`
	Listener      ListenerConfig `mapstructure:"listener" validate:"required"`
}

type CronConfig struct {
	// TimeZone is the single civil time zone all routine times are
	// interpreted in, regardless of where a user happens to be.
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

// SmtpConfig holds the email delivery channel credentials. Empty credentials
// mean the channel is not configured, which selects the simulated dispatch
// paths instead of failing user-facing actions.
type SmtpConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
	Maps                   MapsConfig    `mapstructure:"maps"`
}

type MapsConfig struct {
	ApiKey            string      `mapstructure:"apiKey"`
	EnableLiveLookups interface{} `mapstructure:"enableLiveLookups" validate:"omitempty,bool"`
}

type OpenWeatherConfig struct {
	ApiKey string `mapstructure:"apiKey"`
}

type StorageConfig struct {
	Bucket                    string      `mapstructure:"bucket" validate:"required_with=EnableSqliteBackupAndSync"`
	Prefix                    string      `mapstructure:"prefix" validate:"required_with=EnableSqliteBackupAndSync"`
	SqliteBackupSchedule      string      `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync interface{} `mapstructure:"enableSqliteBackupAndSync" validate:"omitempty,bool"`
}
