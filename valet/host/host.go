package host

import (
	"github.com/sirupsen/logrus"
	"github.com/steelcutops/valet/valet/commandmanager"
	"github.com/steelcutops/valet/valet/packagemanager"
	"github.com/steelcutops/valet/valet/servicemanager"
)

// Host bundles the managers valet needs for one machine.
type Host struct {
	Hostname string
	commandmanager.Credentials

	Logger logrus.FieldLogger

	// Aliases holds per package manager name tables, keyed by lower-case
	// manager name.
	Aliases map[string]map[string]string

	CommandManager commandmanager.CommandManager
	ServiceManager servicemanager.ServiceManager
	PackageManager packagemanager.PackageManager
}
