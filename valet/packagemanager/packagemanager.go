package packagemanager

import (
	"context"
	"errors"
	"fmt"

	"github.com/steelcutops/valet/valet/servicemanager"
)

const (
	// DnsmasqConf is where valet writes its dnsmasq configuration.
	DnsmasqConf = "/etc/dnsmasq.d/valet"

	dnsmasqPackage = "dnsmasq"
	dnsmasqService = "dnsmasq"
)

var (
	// ErrMissingData is returned when a query that must produce a row
	// (such as the installed PHP CLI package) produced none.
	ErrMissingData = errors.New("missing data")

	ErrNoPackageManager = errors.New("no supported package manager is available")
)

// PackageManager lets valet treat distribution package managers uniformly.
type PackageManager interface {
	Name() string

	// Packages lists installed package names matching pkg.
	Packages(ctx context.Context, pkg string) ([]string, error)
	Installed(ctx context.Context, pkg string) (bool, error)
	EnsureInstalled(ctx context.Context, pkg string) error
	InstallOrFail(ctx context.Context, pkg string) error

	// Setup performs one-time, manager specific configuration during valet install.
	Setup(ctx context.Context) error
	PHPVersion(ctx context.Context) (string, error)

	DnsmasqSetup(ctx context.Context, sm servicemanager.ServiceManager) error
	DnsmasqRestart(ctx context.Context, sm servicemanager.ServiceManager) error
	DnsmasqConfigPath() string

	// IsAvailable probes for the manager's binary. It never fails: any
	// error while probing means the manager is not available.
	IsAvailable(ctx context.Context) bool
}

// InstallationError is returned when a package manager could not install a package.
type InstallationError struct {
	Manager string
	Package string
	Err     error
}

func (e *InstallationError) Error() string {
	return fmt.Sprintf("%s was unable to install [%s]: %v", e.Manager, e.Package, e.Err)
}

func (e *InstallationError) Unwrap() error {
	return e.Err
}

// Detect returns the first candidate available on the host.
func Detect(ctx context.Context, candidates ...PackageManager) (PackageManager, error) {
	for _, pm := range candidates {
		if pm.IsAvailable(ctx) {
			return pm, nil
		}
	}
	return nil, ErrNoPackageManager
}

// mergeAliases layers overrides on top of defaults. An override wins for its
// own key and every other default stays in place.
func mergeAliases(defaults, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(defaults)+len(overrides))
	for name, target := range defaults {
		merged[name] = target
	}
	for name, target := range overrides {
		merged[name] = target
	}
	return merged
}

func resolveAlias(aliases map[string]string, pkg string) string {
	if name, ok := aliases[pkg]; ok && name != "" {
		return name
	}
	return pkg
}

func contains(packages []string, pkg string) bool {
	for _, p := range packages {
		if p == pkg {
			return true
		}
	}
	return false
}
