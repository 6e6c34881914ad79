// Package validate runs the pre-flight checks that must pass across the
// whole catalog before any remote call is made.
package validate

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/section6nz/3scale-sync/internal/model"
	"github.com/section6nz/3scale-sync/internal/syncerr"
)

// AuthTypes maps the catalog's authentication types to the control plane's
// backend_version values.
var AuthTypes = map[string]string{
	"app_key":    "1",
	"app_id_key": "2",
	"oauth":      "oauth",
	"oidc":       "oidc",
}

// MappingMethods are the HTTP methods a mapping rule may use.
var MappingMethods = sets.New("GET", "PUT", "POST", "DELETE", "OPTIONS", "HEAD", "PATCH", "TRACE")

// Catalog checks every cross-product invariant and returns all violations as
// syncerr.ValidationErrors, or nil.
func Catalog(c *model.Catalog) error {
	if c == nil {
		return syncerr.ValidationErrors{{Rule: "catalog is empty"}}
	}

	var (
		shortNames = owners{}
		backendIDs = owners{}
		appNames   = owners{}
		paths      []string
		hosts      []string
		authTypes  []string
		methods    []string
	)

	for i := range c.Products {
		p := &c.Products[i]
		shortNames.add(model.SystemName(p.ShortName), p.Name)

		productPaths := owners{}
		for _, b := range p.Backends {
			backendIDs.add(b.ID, p.Name)
			productPaths.add(b.Path, b.ID)
			if err := checkHost(b.PrivateBaseURL); err != "" {
				hosts = append(hosts, fmt.Sprintf("%s: %s", b.ID, err))
			}
		}
		for _, d := range productPaths.duplicates() {
			paths = append(paths, fmt.Sprintf("%s in product %q", d, p.Name))
		}

		for _, a := range p.Applications {
			appNames.add(model.ApplicationName(c.Environment, p, a), p.Name)
		}

		if _, ok := AuthTypes[p.API.Authentication.AuthType]; !ok {
			authTypes = append(authTypes, fmt.Sprintf("%q in product %q", p.API.Authentication.AuthType, p.Name))
		}

		for _, m := range p.Mappings {
			if !MappingMethods.Has(strings.ToUpper(m.Method)) {
				methods = append(methods, fmt.Sprintf("%s %s in product %q", m.Method, m.Pattern, p.Name))
			}
		}
	}

	var errs syncerr.ValidationErrors
	add := func(rule string, values []string) {
		if len(values) == 0 {
			return
		}
		sort.Strings(values)
		errs = append(errs, &syncerr.ValidationError{Rule: rule, Values: values})
	}
	add("duplicate product shortName", shortNames.duplicates())
	add("duplicate backend id", backendIDs.duplicates())
	add("duplicate application name", appNames.duplicates())
	add("duplicate backend path", paths)
	add("invalid backend privateBaseURL", hosts)
	add("unsupported authType", authTypes)
	add("unsupported mapping method", methods)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// checkHost returns a description of what is wrong with raw's hostname, or "".
func checkHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("%q is not a URL", raw)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Sprintf("%q has no host", raw)
	}
	if errs := validation.IsFullyQualifiedDomainName(field.NewPath("privateBaseURL"), host); len(errs) > 0 {
		return errs.ToAggregate().Error()
	}
	return ""
}

// owners tracks which declarations use each key.
type owners map[string][]string

func (o owners) add(key, owner string) {
	o[key] = append(o[key], owner)
}

// duplicates describes every key used more than once, sorted by key.
func (o owners) duplicates() []string {
	keys := sets.New[string]()
	for k, v := range o {
		if len(v) > 1 {
			keys.Insert(k)
		}
	}
	out := make([]string, 0, keys.Len())
	for _, k := range sets.List(keys) {
		out = append(out, fmt.Sprintf("%s (%s)", k, strings.Join(o[k], ", ")))
	}
	return out
}
