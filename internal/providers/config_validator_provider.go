package providers

import (
	"crewboard/internal/structures"
	"fmt"
	"time"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	sections := map[string]interface{}{
		"webServer": &cv.conf.WebServer,
		"logger":    &cv.conf.Logger,
		"roster":    &cv.conf.Roster,
		"stats":     &cv.conf.Stats,
		"presence":  &cv.conf.Presence,
	}
	for name, section := range sections {
		v := validate.Struct(section)
		if !v.Validate() {
			return fmt.Errorf("invalid config section %s: %s", name, v.Errors.One())
		}
	}
	if cv.conf.Cache.Enabled && cv.conf.Cache.TTL < time.Second {
		return fmt.Errorf("invalid config: cache.ttl must be at least 1s, got %s", cv.conf.Cache.TTL)
	}
	return nil
}
