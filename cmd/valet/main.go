package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/steelcutops/valet/logger"
	"github.com/steelcutops/valet/valet/config"
	"github.com/steelcutops/valet/valet/host"
)

type flags struct {
	ConfigPath         string
	Debug              bool
	DnsmasqRestart     bool
	DnsmasqSetup       bool
	Ensure             packagesValue
	Available          bool
	Hostname           string
	Installed          string
	KeyPassPrompt      bool
	PasswordPrompt     bool
	PHPVersion         bool
	Setup              bool
	SudoPasswordPrompt bool
	Username           string
}

type packagesValue []string

func (p *packagesValue) String() string {
	return strings.Join(*p, ",")
}

func (p *packagesValue) Set(value string) error {
	*p = append(*p, value)
	return nil
}

type action struct {
	name string
	run  func(ctx context.Context, h *host.Host) error
}

func parseFlags(args []string) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("valet", flag.ContinueOnError)
	fs.BoolVar(&f.Available, "available", false, "Report which package manager is available on the host")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug log level")
	fs.BoolVar(&f.DnsmasqRestart, "dnsmasq-restart", false, "Restart dnsmasq")
	fs.BoolVar(&f.DnsmasqSetup, "dnsmasq-setup", false, "Install dnsmasq and take it over from NetworkManager")
	fs.BoolVar(&f.KeyPassPrompt, "keypass", false, "Prompt for the SSH key passphrase")
	fs.BoolVar(&f.PasswordPrompt, "password", false, "Prompt for an SSH password")
	fs.BoolVar(&f.PHPVersion, "php-version", false, "Print the installed PHP version")
	fs.BoolVar(&f.Setup, "setup", false, "Run package manager specific setup")
	fs.BoolVar(&f.SudoPasswordPrompt, "sudo-password", false, "Prompt for the sudo password")
	fs.StringVar(&f.ConfigPath, "config", config.DefaultPath(), "Path to the INI configuration file")
	fs.StringVar(&f.Hostname, "hostname", "", "Host to manage (overrides the config file)")
	fs.StringVar(&f.Installed, "installed", "", "Report whether a package is installed")
	fs.StringVar(&f.Username, "username", "", "Username for the SSH connection (overrides the config file)")
	fs.Var(&f.Ensure, "ensure", "Package to install if missing (repeatable)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

func hostOptions(f *flags, cfg *config.Config, log logrus.FieldLogger) ([]host.HostOption, error) {
	options := []host.HostOption{host.WithLogger(log)}
	for manager, aliases := range cfg.Aliases {
		options = append(options, host.WithAliases(manager, aliases))
	}

	user := cfg.User
	if f.Username != "" {
		user = f.Username
	}
	if user != "" {
		options = append(options, host.WithUser(user))
	}

	prompts := []struct {
		enabled bool
		prompt  string
		option  func(string) host.HostOption
	}{
		{f.PasswordPrompt, "Enter the password: ", host.WithPassword},
		{f.KeyPassPrompt, "Enter the key passphrase: ", host.WithKeyPassphrase},
		{f.SudoPasswordPrompt, "Enter the sudo password: ", host.WithSudoPassword},
	}
	for _, p := range prompts {
		if !p.enabled {
			continue
		}
		secret, err := readSecret(p.prompt)
		if err != nil {
			return nil, fmt.Errorf("failed to read secret: %w", err)
		}
		options = append(options, p.option(secret))
	}
	return options, nil
}

func buildActions(f *flags) []action {
	var actions []action

	if f.Available {
		actions = append(actions, action{"available", func(ctx context.Context, h *host.Host) error {
			fmt.Printf("%s: %s\n", h.Hostname, h.PackageManager.Name())
			return nil
		}})
	}
	if f.Setup {
		actions = append(actions, action{"setup", func(ctx context.Context, h *host.Host) error {
			return h.PackageManager.Setup(ctx)
		}})
	}
	for _, pkg := range f.Ensure {
		pkg := pkg
		actions = append(actions, action{"ensure " + pkg, func(ctx context.Context, h *host.Host) error {
			return h.PackageManager.EnsureInstalled(ctx, pkg)
		}})
	}
	if f.Installed != "" {
		actions = append(actions, action{"installed", func(ctx context.Context, h *host.Host) error {
			installed, err := h.PackageManager.Installed(ctx, f.Installed)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %t\n", f.Installed, installed)
			return nil
		}})
	}
	if f.PHPVersion {
		actions = append(actions, action{"php-version", func(ctx context.Context, h *host.Host) error {
			version, err := h.PackageManager.PHPVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Println(version)
			return nil
		}})
	}
	if f.DnsmasqSetup {
		actions = append(actions, action{"dnsmasq-setup", func(ctx context.Context, h *host.Host) error {
			if err := h.PackageManager.DnsmasqSetup(ctx, h.ServiceManager); err != nil {
				return err
			}
			fmt.Printf("dnsmasq configuration: %s\n", h.PackageManager.DnsmasqConfigPath())
			return nil
		}})
	}
	if f.DnsmasqRestart {
		actions = append(actions, action{"dnsmasq-restart", func(ctx context.Context, h *host.Host) error {
			return h.PackageManager.DnsmasqRestart(ctx, h.ServiceManager)
		}})
	}

	return actions
}

// runActions runs every action and reports all failures together. A failed
// action does not stop the ones after it.
func runActions(ctx context.Context, h *host.Host, actions []action, log logrus.FieldLogger) error {
	var result *multierror.Error
	for _, a := range actions {
		log.WithField("action", a.name).Debug("Running action")
		if err := a.run(ctx, h); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", a.name, err))
		}
	}
	return result.ErrorOrNil()
}

func run(ctx context.Context, args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return err
	}
	if f.Debug {
		cfg.LogLevel = "debug"
	}
	if f.Hostname != "" {
		cfg.Hostname = f.Hostname
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	if err != nil {
		return err
	}

	actions := buildActions(f)
	if len(actions) == 0 {
		return errors.New("nothing to do, see -help")
	}

	options, err := hostOptions(f, cfg, log)
	if err != nil {
		return err
	}

	h, err := host.NewHost(ctx, cfg.Hostname, options...)
	if err != nil {
		return err
	}

	return runActions(ctx, h, actions, log.WithField("host", h.Hostname))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			logrus.Error(err)
		}
		stop()
		os.Exit(1)
	}
}
