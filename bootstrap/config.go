package bootstrap

import "github.com/kbukum/demandflow/config"

// Config is the constraint for application configuration types. Any struct
// embedding config.ServiceConfig satisfies it through promoted methods.
type Config interface {
	config.Config
	GetServiceConfig() *config.ServiceConfig
}
