package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Watch re-decodes the config file whenever it changes on disk and hands the
// fresh value to onChange. It is a no-op when no config file was loaded.
func Watch(logger zerolog.Logger, onChange func(*Config)) {
	v := viper.GetViper()
	if v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			logger.Warn().Err(err).Str("file", e.Name).Msg("config reload failed")
			return
		}
		logger.Info().Str("file", e.Name).Msg("config reloaded")
		onChange(&next)
	})
	v.WatchConfig()
}
