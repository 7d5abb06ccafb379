package configuration

import "time"

type RelayConfiguration struct {
	MaxDeliveryAttempts int           `toml:"max_delivery_attempts" envconfig:"MAX_DELIVERY_ATTEMPTS"`
	DeliveryDelay       time.Duration `toml:"delivery_delay" envconfig:"DELIVERY_DELAY"`
	DispatchTimeout     time.Duration `toml:"dispatch_timeout" envconfig:"DISPATCH_TIMEOUT"`
}

func DefRelayConfiguration() *RelayConfiguration {
	return &RelayConfiguration{
		MaxDeliveryAttempts: 10,
		DeliveryDelay:       300 * time.Millisecond,
		DispatchTimeout:     5 * time.Second,
	}
}

type HostConfiguration struct {
	Addr         string        `toml:"addr" envconfig:"ADDR"`
	SurfaceURL   string        `toml:"surface_url" envconfig:"SURFACE_URL"`
	OpenCommand  string        `toml:"open_command" envconfig:"OPEN_COMMAND"`
	WriteTimeout time.Duration `toml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
}

func DefHostConfiguration() *HostConfiguration {
	return &HostConfiguration{
		Addr:         "127.0.0.1:7465",
		SurfaceURL:   "http://127.0.0.1:7465/",
		WriteTimeout: 10 * time.Second,
	}
}
