package scraper

import (
	"sort"
	"strings"

	apperr "estatescrapers/pkg/errors"

	"estatescrapers/logger"
)

// Constructor builds a fresh adapter triplet. Adapters are constructed once
// per crawl run so that any per-run state (such as an API item cache) starts
// empty.
type Constructor func() Adapter

// builtins lists every supported site. Adding a site means writing its three
// page roles in a new file and appending its constructor here.
var builtins = []Constructor{
	NewImmoweltAt,
	NewImmoweltDe,
	NewRealoBe,
	NewRealoEs,
	NewTospitimouGr,
	NewGreenAcresGr,
	NewGreenAcresEs,
	NewHabitaCom,
}

// Registry maps each registered domain to its adapter triplet. It is built
// once at startup and read-only afterwards.
type Registry struct {
	adapters map[string]Adapter
}

// Entry is one crawl entry point with its owning domain's fetch policy
type Entry struct {
	URL     string
	Domain  string
	Dynamic bool
}

// NewRegistry builds a registry from the given constructors. A duplicate
// domain or an incomplete triplet is a configuration error.
func NewRegistry(constructors ...Constructor) (*Registry, error) {
	adapters := make(map[string]Adapter, len(constructors))
	for _, construct := range constructors {
		adapter := construct()
		if err := adapter.validate(); err != nil {
			return nil, err
		}
		domain := strings.ToLower(adapter.Home.Domain())
		if _, exists := adapters[domain]; exists {
			return nil, apperr.NewConfiguration("duplicate adapter for domain "+domain, nil)
		}
		adapters[domain] = adapter
		logger.Debug("Registered adapter for %s", domain)
	}
	return &Registry{adapters: adapters}, nil
}

// DefaultRegistry builds the registry of all built-in site adapters
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(builtins...)
}

// Lookup routes a URL host to the adapter owning its domain. The crawl only
// follows URLs produced by registered adapters, so a miss is a configuration
// error, not a runtime condition.
func (r *Registry) Lookup(host string) (Adapter, error) {
	host = NormalizeHost(host)
	if adapter, ok := r.adapters[host]; ok {
		return adapter, nil
	}
	for domain, adapter := range r.adapters {
		if strings.HasSuffix(host, "."+domain) {
			return adapter, nil
		}
	}
	return Adapter{}, apperr.NewConfiguration("no adapter registered for host "+host, nil)
}

// Domains returns all registered domains, sorted
func (r *Registry) Domains() []string {
	domains := make([]string, 0, len(r.adapters))
	for domain := range r.adapters {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains
}

// Entries returns the crawl entry points, optionally restricted to one
// domain. An unknown onlyDomain is a configuration error.
func (r *Registry) Entries(onlyDomain string) ([]Entry, error) {
	domains := r.Domains()
	if onlyDomain != "" {
		onlyDomain = strings.ToLower(onlyDomain)
		if _, ok := r.adapters[onlyDomain]; !ok {
			return nil, apperr.NewConfiguration("unknown domain filter: "+onlyDomain, nil)
		}
		domains = []string{onlyDomain}
	}

	var entries []Entry
	for _, domain := range domains {
		adapter := r.adapters[domain]
		for _, rawURL := range adapter.Home.EntryURLs() {
			entries = append(entries, Entry{
				URL:     rawURL,
				Domain:  domain,
				Dynamic: adapter.Home.DynamicFetch(),
			})
		}
	}
	return entries, nil
}
