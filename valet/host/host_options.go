package host

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/steelcutops/valet/valet/commandmanager"
)

type HostOption func(*Host)

// WithUser returns a HostOption that sets the user for a Host.
func WithUser(user string) HostOption {
	return func(host *Host) {
		host.User = user
	}
}

// WithPassword returns a HostOption that sets the password for a Host.
func WithPassword(password string) HostOption {
	return func(host *Host) {
		host.Password = password
	}
}

// WithKeyPassphrase returns a HostOption that sets the key passphrase for a Host.
func WithKeyPassphrase(keyPassphrase string) HostOption {
	return func(host *Host) {
		host.KeyPassphrase = keyPassphrase
	}
}

// WithSudoPassword returns a HostOption that sets the sudo password for a Host.
func WithSudoPassword(password string) HostOption {
	return func(host *Host) {
		host.SudoPassword = password
	}
}

func WithLogger(logger logrus.FieldLogger) HostOption {
	return func(host *Host) {
		host.Logger = logger
	}
}

// WithAliases layers aliases over the built-in table of the named package
// manager ("apt" or "dnf"). Other managers are unaffected.
func WithAliases(manager string, aliases map[string]string) HostOption {
	return func(host *Host) {
		if host.Aliases == nil {
			host.Aliases = make(map[string]map[string]string)
		}
		host.Aliases[strings.ToLower(manager)] = aliases
	}
}

// WithCommandManager overrides the UnixCommandManager built by NewHost.
func WithCommandManager(manager commandmanager.CommandManager) HostOption {
	return func(host *Host) {
		host.CommandManager = manager
	}
}
