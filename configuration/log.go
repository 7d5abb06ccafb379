package configuration

type LogConfiguration struct {
	Level  string `toml:"level" envconfig:"LEVEL"`
	Format string `toml:"format" envconfig:"FORMAT"`
	Output string `toml:"output" envconfig:"OUTPUT"`
	Param  string `toml:"param" envconfig:"PARAM"`
}

func DefLogConfiguration() *LogConfiguration {
	return &LogConfiguration{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}
}
