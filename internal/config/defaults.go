package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			DataDir:  "~/.homebase",
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Path: "~/.homebase/listings.db",
		},
		WhatsApp: WhatsAppConfig{
			ProfileDir:    "~/.homebase/whatsapp-profile",
			BlacklistPath: "~/.homebase/whatsapp-blacklist.txt",
			DelaySeconds:  5,
			BatchSize:     10,
			BatchPauseSec: 10,
		},
		Sync:   SyncConfig{},
		Notify: NotifyConfig{},
	}
}
