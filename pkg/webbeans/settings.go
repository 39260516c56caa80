package webbeans

import "sync/atomic"

// Settings holds process-wide integration switches.
//
// The template integration flag is process lifetime state: once an
// application opts in it stays enabled for every application in the
// process and is never reset.
type Settings struct {
	templateIntegration atomic.Bool
}

var global = &Settings{}

// Global returns the process-wide settings
func Global() *Settings {
	return global
}

// EnableTemplateIntegration turns on the template integration mode. It is idempotent.
func (s *Settings) EnableTemplateIntegration() {
	s.templateIntegration.Store(true)
}

// TemplateIntegrationEnabled reports whether any application enabled template integration
func (s *Settings) TemplateIntegrationEnabled() bool {
	return s.templateIntegration.Load()
}
