package model

import (
	"fmt"
	"strings"
)

var systemNameReplacer = strings.NewReplacer("-", "_", " ", "_")

// SystemName derives the stable control-plane key from a display name.
func SystemName(name string) string {
	return systemNameReplacer.Replace(name)
}

// BackendName is the display name of the backend registered for ref.
func BackendName(environment string, ref BackendRef) string {
	return fmt.Sprintf("%s_%s_backend", environment, ref.ID)
}

// DefaultApplicationName is used when an ApplicationSpec has no explicit name.
func DefaultApplicationName(environment string, p *ProductSpec) string {
	return fmt.Sprintf("%s_%s_v%d_Application", environment, p.systemName(), p.Version)
}

// ApplicationPlanName is the per-version plan every application of p subscribes to.
func ApplicationPlanName(environment string, p *ProductSpec) string {
	return fmt.Sprintf("%s_%s_v%d_AppPlan", environment, p.systemName(), p.Version)
}

// ApplicationName returns the configured name of a, or the default for p.
func ApplicationName(environment string, p *ProductSpec, a ApplicationSpec) string {
	if a.Name != "" {
		return a.Name
	}
	return DefaultApplicationName(environment, p)
}

func (p *ProductSpec) systemName() string {
	if p.SystemName != "" {
		return p.SystemName
	}
	return SystemName(p.ShortName)
}
