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

const dnfNetworkManagerService = "NetworkManager"

// DefaultDnfAliases maps logical package names to their Fedora names. The
// Fedora package names already match, so it starts empty.
var DefaultDnfAliases = map[string]string{}

// DnfPackageManager serves Fedora and other rpm/dnf based distributions.
type DnfPackageManager struct {
	CommandManager cm.CommandManager
	Logger         logrus.FieldLogger

	// Aliases is layered over DefaultDnfAliases.
	Aliases map[string]string
}

func (dpm *DnfPackageManager) Name() string {
	return "Dnf"
}

func (dpm *DnfPackageManager) Packages(ctx context.Context, pkg string) ([]string, error) {
	output, err := dpm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "rpm",
		Args:    []string{"-qa", "--queryformat", `%{NAME}\n`, pkg},
	})
	if err != nil {
		if cm.IsExitCode(err, 1) {
			return nil, nil
		}
		return nil, err
	}

	var packages []string
	for _, line := range strings.Split(output.STDOUT, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			packages = append(packages, name)
		}
	}
	return packages, nil
}

func (dpm *DnfPackageManager) Installed(ctx context.Context, pkg string) (bool, error) {
	packages, err := dpm.Packages(ctx, pkg)
	if err != nil {
		return false, err
	}
	return contains(packages, pkg), nil
}

func (dpm *DnfPackageManager) EnsureInstalled(ctx context.Context, pkg string) error {
	pkg = resolveAlias(mergeAliases(DefaultDnfAliases, dpm.Aliases), pkg)

	installed, err := dpm.Installed(ctx, pkg)
	if err != nil {
		return err
	}
	if installed {
		return nil
	}
	return dpm.InstallOrFail(ctx, pkg)
}

func (dpm *DnfPackageManager) InstallOrFail(ctx context.Context, pkg string) error {
	logger := dpm.log().WithField("package", pkg)
	logger.Infof("[%s] is not installed, installing it now via Dnf...", pkg)

	_, err := dpm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "dnf",
		Args:    []string{"install", "-y", pkg},
		Sudo:    true,
	})
	if err != nil {
		var failed *cm.CommandFailedError
		if errors.As(err, &failed) {
			logger.Error(strings.TrimSpace(failed.Stderr))
		}
		return &InstallationError{Manager: dpm.Name(), Package: pkg, Err: err}
	}
	return nil
}

func (dpm *DnfPackageManager) Setup(ctx context.Context) error {
	return nil
}

// PHPVersion reads the php-cli package version and keeps major.minor.
func (dpm *DnfPackageManager) PHPVersion(ctx context.Context) (string, error) {
	output, err := dpm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "rpm",
		Args:    []string{"-q", "--queryformat", `%{VERSION}\n`, "php-cli"},
	})
	if err != nil {
		if cm.IsExitCode(err, 1) {
			return "", fmt.Errorf("%w: php-cli is not installed", ErrMissingData)
		}
		return "", err
	}

	// rpm prints one line per installed build, the first one wins
	version, _, _ := strings.Cut(strings.TrimSpace(output.STDOUT), "\n")
	parts := strings.SplitN(strings.TrimSpace(version), ".", 3)
	if len(parts) < 2 || parts[0] == "" {
		return "", fmt.Errorf("%w: unexpected php-cli version %q", ErrMissingData, output.STDOUT)
	}
	return parts[0] + "." + parts[1], nil
}

func (dpm *DnfPackageManager) DnsmasqSetup(ctx context.Context, sm servicemanager.ServiceManager) error {
	if err := dpm.EnsureInstalled(ctx, dnsmasqPackage); err != nil {
		return err
	}

	managed, err := networkManagerControlsDnsmasq(ctx, dpm.CommandManager, dpm.log())
	if err != nil {
		return err
	}
	if managed {
		if err := releaseDnsmasq(ctx, dpm.CommandManager, sm, dnfNetworkManagerService, dpm.log()); err != nil {
			return err
		}
	}

	return dpm.DnsmasqRestart(ctx, sm)
}

func (dpm *DnfPackageManager) DnsmasqRestart(ctx context.Context, sm servicemanager.ServiceManager) error {
	return sm.RestartService(ctx, dnsmasqService)
}

func (dpm *DnfPackageManager) DnsmasqConfigPath() string {
	return DnsmasqConf
}

func (dpm *DnfPackageManager) IsAvailable(ctx context.Context) bool {
	output, err := dpm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "which",
		Args:    []string{"dnf"},
	})
	if err != nil {
		dpm.log().WithError(err).Debug("Dnf not available")
		return false
	}
	return strings.TrimSpace(output.STDOUT) != ""
}

func (dpm *DnfPackageManager) log() logrus.FieldLogger {
	if dpm.Logger == nil {
		return logrus.StandardLogger()
	}
	return dpm.Logger
}
