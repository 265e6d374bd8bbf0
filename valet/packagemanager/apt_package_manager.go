package packagemanager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	cm "github.com/steelcutops/valet/valet/commandmanager"
	"github.com/steelcutops/valet/valet/servicemanager"
)

// DefaultAptAliases maps logical package names to their Debian/Ubuntu names.
var DefaultAptAliases = map[string]string{
	"nginx": "nginx-core",
}

const aptNetworkManagerService = "network-manager"

type AptPackageManager struct {
	CommandManager cm.CommandManager
	Logger         logrus.FieldLogger

	// Aliases is layered over DefaultAptAliases.
	Aliases map[string]string
}

func (apm *AptPackageManager) Name() string {
	return "Apt"
}

// Packages returns the names of installed (status "ii") packages matching pkg.
func (apm *AptPackageManager) Packages(ctx context.Context, pkg string) ([]string, error) {
	output, err := apm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "dpkg",
		Args:    []string{"-l", pkg},
	})
	if err != nil {
		// dpkg -l exits 1 when no package matches the pattern
		if cm.IsExitCode(err, 1) {
			return nil, nil
		}
		return nil, err
	}
	return parseDpkgList(output.STDOUT), nil
}

func parseDpkgList(output string) []string {
	var packages []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "ii" {
			packages = append(packages, fields[1])
		}
	}
	return packages
}

func (apm *AptPackageManager) Installed(ctx context.Context, pkg string) (bool, error) {
	packages, err := apm.Packages(ctx, pkg)
	if err != nil {
		return false, err
	}
	return contains(packages, pkg), nil
}

func (apm *AptPackageManager) EnsureInstalled(ctx context.Context, pkg string) error {
	pkg = resolveAlias(apm.aliases(), pkg)

	installed, err := apm.Installed(ctx, pkg)
	if err != nil {
		return err
	}
	if installed {
		return nil
	}
	return apm.InstallOrFail(ctx, pkg)
}

func (apm *AptPackageManager) InstallOrFail(ctx context.Context, pkg string) error {
	logger := apm.log().WithField("package", pkg)
	logger.Infof("[%s] is not installed, installing it now via Apt...", pkg)

	_, err := apm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "apt-get",
		Args:    []string{"install", "-y", pkg},
		Sudo:    true,
		Env:     []string{"DEBIAN_FRONTEND=noninteractive"},
	})
	if err != nil {
		var failed *cm.CommandFailedError
		if errors.As(err, &failed) {
			logger.Error(strings.TrimSpace(failed.Stderr))
		}
		return &InstallationError{Manager: apm.Name(), Package: pkg, Err: err}
	}
	return nil
}

func (apm *AptPackageManager) Setup(ctx context.Context) error {
	return nil
}

// PHPVersion derives the installed PHP version from the phpX.Y-cli package.
func (apm *AptPackageManager) PHPVersion(ctx context.Context) (string, error) {
	const query = "php*cli"

	packages, err := apm.Packages(ctx, query)
	if err != nil {
		return "", err
	}

	for _, pkg := range packages {
		if version := phpVersionFromPackage(pkg); version != "" {
			return version, nil
		}
	}
	return "", fmt.Errorf("%w: no installed package matches %s", ErrMissingData, query)
}

// phpVersionFromPackage turns "php8.1-cli" into "8.1". The unversioned
// "php-cli" metapackage yields "".
func phpVersionFromPackage(pkg string) string {
	name, _, _ := strings.Cut(pkg, "-")
	version, ok := strings.CutPrefix(name, "php")
	if !ok {
		return ""
	}
	return version
}

func (apm *AptPackageManager) DnsmasqSetup(ctx context.Context, sm servicemanager.ServiceManager) error {
	if err := apm.EnsureInstalled(ctx, dnsmasqPackage); err != nil {
		return err
	}

	managed, err := networkManagerControlsDnsmasq(ctx, apm.CommandManager, apm.log())
	if err != nil {
		return err
	}
	if managed {
		if err := releaseDnsmasq(ctx, apm.CommandManager, sm, aptNetworkManagerService, apm.log()); err != nil {
			return err
		}
	}

	return apm.DnsmasqRestart(ctx, sm)
}

func (apm *AptPackageManager) DnsmasqRestart(ctx context.Context, sm servicemanager.ServiceManager) error {
	return sm.RestartService(ctx, dnsmasqService)
}

func (apm *AptPackageManager) DnsmasqConfigPath() string {
	return DnsmasqConf
}

func (apm *AptPackageManager) IsAvailable(ctx context.Context) bool {
	output, err := apm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "which",
		Args:    []string{"apt-get"},
	})
	if err != nil {
		apm.log().WithError(err).Debug("Apt not available")
		return false
	}
	return strings.TrimSpace(output.STDOUT) != ""
}

func (apm *AptPackageManager) aliases() map[string]string {
	return mergeAliases(DefaultAptAliases, apm.Aliases)
}

func (apm *AptPackageManager) log() logrus.FieldLogger {
	if apm.Logger == nil {
		return logrus.StandardLogger()
	}
	return apm.Logger
}
