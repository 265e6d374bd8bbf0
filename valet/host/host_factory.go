package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/steelcutops/valet/valet/commandmanager"
	"github.com/steelcutops/valet/valet/packagemanager"
	"github.com/steelcutops/valet/valet/servicemanager"
)

func NewHost(ctx context.Context, hostname string, options ...HostOption) (*Host, error) {
	if hostname == "" {
		return nil, errors.New("hostname is required")
	}

	h := &Host{Hostname: hostname}
	for _, option := range options {
		option(h)
	}

	if h.Logger == nil {
		h.Logger = logrus.StandardLogger()
	}
	logger := h.Logger.WithField("host", hostname)

	if h.CommandManager == nil {
		h.CommandManager = &commandmanager.UnixCommandManager{
			Hostname:    hostname,
			Logger:      logger,
			Credentials: h.Credentials,
		}
	}
	h.ServiceManager = &servicemanager.LinuxServiceManager{CommandManager: h.CommandManager, Logger: logger}

	pm, err := packagemanager.Detect(ctx,
		&packagemanager.AptPackageManager{CommandManager: h.CommandManager, Logger: logger, Aliases: h.Aliases["apt"]},
		&packagemanager.DnfPackageManager{CommandManager: h.CommandManager, Logger: logger, Aliases: h.Aliases["dnf"]},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", hostname, err)
	}
	h.PackageManager = pm

	logger.WithField("package_manager", pm.Name()).Debug("Configured host")
	return h, nil
}
