package packagemanager

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	cm "github.com/steelcutops/valet/valet/commandmanager"
	"github.com/steelcutops/valet/valet/networkmanager"
	"github.com/steelcutops/valet/valet/servicemanager"
)

// networkManagerControlsDnsmasq reads NetworkManager.conf on the host. A
// file that cannot be read means NetworkManager is not in the way.
func networkManagerControlsDnsmasq(ctx context.Context, cmdManager cm.CommandManager, logger logrus.FieldLogger) (bool, error) {
	output, err := cmdManager.Run(ctx, cm.CommandConfig{
		Command: "cat",
		Args:    []string{networkmanager.ConfPath},
	})
	if err != nil {
		var failed *cm.CommandFailedError
		if errors.As(err, &failed) {
			logger.WithField("path", networkmanager.ConfPath).Debug("NetworkManager configuration not readable")
			return false, nil
		}
		return false, err
	}
	return networkmanager.ManagesDnsmasq([]byte(output.STDOUT))
}

// releaseDnsmasq takes dnsmasq away from NetworkManager so domain updates
// do not drop the network connection.
func releaseDnsmasq(ctx context.Context, cmdManager cm.CommandManager, sm servicemanager.ServiceManager, nmService string, logger logrus.FieldLogger) error {
	logger.WithField("path", networkmanager.ConfPath).Info("Removing dnsmasq control from NetworkManager")

	_, err := cmdManager.Run(ctx, cm.CommandConfig{
		Command: "sed",
		Args:    []string{"-i", networkmanager.DisableDnsmasqExpr, networkmanager.ConfPath},
		Sudo:    true,
	})
	if err != nil {
		return err
	}

	if err := sm.StopService(ctx, nmService); err != nil {
		return err
	}

	// pkill exits 1 when nothing matched
	_, err = cmdManager.Run(ctx, cm.CommandConfig{
		Command: "pkill",
		Args:    []string{dnsmasqPackage},
		Sudo:    true,
	})
	if err != nil && !cm.IsExitCode(err, 1) {
		return err
	}

	return sm.StartService(ctx, nmService)
}
