package servicemanager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	cm "github.com/steelcutops/valet/valet/commandmanager"
)

// LinuxServiceManager drives systemd units through systemctl.
type LinuxServiceManager struct {
	CommandManager cm.CommandManager
	Logger         logrus.FieldLogger
}

func (lsm *LinuxServiceManager) EnableService(ctx context.Context, serviceName string) error {
	return lsm.systemctl(ctx, "enable", serviceName)
}

func (lsm *LinuxServiceManager) StartService(ctx context.Context, serviceName string) error {
	return lsm.systemctl(ctx, "start", serviceName)
}

func (lsm *LinuxServiceManager) StopService(ctx context.Context, serviceName string) error {
	return lsm.systemctl(ctx, "stop", serviceName)
}

func (lsm *LinuxServiceManager) RestartService(ctx context.Context, serviceName string) error {
	return lsm.systemctl(ctx, "restart", serviceName)
}

// CheckServiceStatus maps `systemctl is-active` output to a ServiceStatus.
// is-active exits non-zero for anything but an active unit, so the exit
// code alone is not treated as a failure.
func (lsm *LinuxServiceManager) CheckServiceStatus(ctx context.Context, serviceName string) (ServiceStatus, error) {
	output, err := lsm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "systemctl",
		Args:    []string{"is-active", serviceName},
	})
	var failed *cm.CommandFailedError
	if err != nil && !errors.As(err, &failed) {
		return "", err
	}

	switch status := ServiceStatus(strings.TrimSpace(output.STDOUT)); status {
	case Active, Inactive, Failed:
		return status, nil
	default:
		if err != nil {
			return "", err
		}
		return "", fmt.Errorf("unexpected status %q for service %s", status, serviceName)
	}
}

func (lsm *LinuxServiceManager) systemctl(ctx context.Context, verb, serviceName string) error {
	lsm.log().WithField("service", serviceName).Debugf("systemctl %s", verb)
	_, err := lsm.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "systemctl",
		Args:    []string{verb, serviceName},
		Sudo:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to %s service %s: %w", verb, serviceName, err)
	}
	return nil
}

func (lsm *LinuxServiceManager) log() logrus.FieldLogger {
	if lsm.Logger == nil {
		return logrus.StandardLogger()
	}
	return lsm.Logger
}
