// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "aquasentinel")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "aquasentinel.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)
	viper.SetDefault("main.log.rotationday", time.Sunday)

	viper.SetDefault("classifier.modelpath", "")
	viper.SetDefault("classifier.labelpath", "")
	viper.SetDefault("classifier.workers", 0)
	viper.SetDefault("classifier.timeout", 30)

	viper.SetDefault("outbreak.windowdays", 30)
	viper.SetDefault("outbreak.minthreshold", 5)
	viper.SetDefault("outbreak.highthreshold", 15)
	viper.SetDefault("outbreak.limit", 100)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.log.enabled", false)
	viper.SetDefault("webserver.log.path", "webapi.log")
	viper.SetDefault("webserver.log.rotation", RotationDaily)
	viper.SetDefault("webserver.log.maxsize", 1048576)
	viper.SetDefault("webserver.log.rotationday", time.Sunday)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "aquasentinel.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "aquasentinel")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "aquasentinel")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", 3306)
}
