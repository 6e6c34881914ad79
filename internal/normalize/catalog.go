package normalize

import (
	"fmt"
	"strings"

	"github.com/section6nz/3scale-sync/internal/model"
)

// NormalizeCatalog fills in derived and defaulted fields in place: product
// system names, application names, backend mount paths and upper-cased
// mapping methods. It does not check cross-product invariants.
func NormalizeCatalog(catalog *model.Catalog) error {
	if catalog == nil {
		return fmt.Errorf("catalog cannot be nil")
	}
	catalog.Environment = strings.TrimSpace(catalog.Environment)
	if catalog.Environment == "" {
		return fmt.Errorf("catalog must name an environment")
	}

	for i := range catalog.Products {
		p := &catalog.Products[i]
		if p.Name == "" {
			return fmt.Errorf("product %d must have a name", i)
		}
		if p.ShortName == "" {
			return fmt.Errorf("product %s must have a shortName", p.Name)
		}
		p.SystemName = model.SystemName(p.ShortName)
		p.API.Authentication.AuthType = strings.ToLower(strings.TrimSpace(p.API.Authentication.AuthType))

		// Default backend mount path
		for j := range p.Backends {
			b := &p.Backends[j]
			if b.Path == "" {
				b.Path = "/"
			}
		}

		// Default application names
		for j := range p.Applications {
			a := &p.Applications[j]
			if a.Account == "" {
				return fmt.Errorf("application %d of product %s must name an account", j, p.Name)
			}
			a.Name = model.ApplicationName(catalog.Environment, p, *a)
		}

		for j := range p.Mappings {
			m := &p.Mappings[j]
			m.Method = strings.ToUpper(strings.TrimSpace(m.Method))
		}
	}

	return nil
}
