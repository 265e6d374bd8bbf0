package commandmanager

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultDialTimeout = 30 * time.Second

// Credentials holds everything needed to log in and escalate on a host.
type Credentials struct {
	User          string
	Password      string
	KeyPassphrase string
	SudoPassword  string
}

type SSHDialer interface {
	Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error)
}

type defaultDialer struct{}

func (defaultDialer) Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	config.Timeout = timeout
	return ssh.Dial(network, addr, config)
}

type UnixCommandManager struct {
	Hostname  string
	SSHClient SSHDialer
	Logger    logrus.FieldLogger
	Credentials
}

func (u *UnixCommandManager) log() logrus.FieldLogger {
	if u.Logger == nil {
		return logrus.StandardLogger()
	}
	return u.Logger
}

func (u *UnixCommandManager) Run(ctx context.Context, config CommandConfig) (CommandResult, error) {
	if u.isLocal() {
		return u.RunLocal(ctx, config)
	}
	return u.RunRemote(ctx, config)
}

func (u *UnixCommandManager) RunLocal(ctx context.Context, config CommandConfig) (CommandResult, error) {
	argv := CommandLine(config)
	u.log().WithField("command", config.String()).Debug("Running local command")

	start := time.Now()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if config.Sudo && u.SudoPassword != "" {
		cmd.Stdin = strings.NewReader(u.SudoPassword + "\n")
	}
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := CommandResult{
		Command:   config.String(),
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		Duration:  time.Since(start),
		Timestamp: start,
	}
	if config.Sudo {
		if sudoErr := checkSudo(result); sudoErr != nil {
			return result, sudoErr
		}
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, &CommandFailedError{Command: result.Command, ExitCode: result.ExitCode, Stderr: result.STDERR}
	default:
		return result, fmt.Errorf("running %s: %w", result.Command, err)
	}
}

func (u *UnixCommandManager) RunRemote(ctx context.Context, config CommandConfig) (CommandResult, error) {
	cmdStr := config.String()
	logger := u.log().WithFields(logrus.Fields{"host": u.Hostname, "command": cmdStr})
	logger.Debug("Running remote command")

	sshConfig, keyManager, err := u.sshConfig()
	if err != nil {
		return CommandResult{}, err
	}
	if keyManager != nil {
		defer keyManager.Close()
	}

	dialTimeout := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		dialTimeout = time.Until(deadline)
	}

	dialer := u.SSHClient
	if dialer == nil {
		dialer = defaultDialer{}
	}
	client, err := dialer.Dial("tcp", u.address(), sshConfig, dialTimeout)
	if err != nil {
		return CommandResult{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return CommandResult{}, fmt.Errorf("opening ssh session on %s: %w", u.Hostname, err)
	}
	defer session.Close()

	if config.Sudo && u.SudoPassword != "" {
		session.Stdin = strings.NewReader(u.SudoPassword + "\n")
	}
	var stdout, stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmdStr)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		logger.Error("Remote command timed out")
		return CommandResult{}, ctx.Err()
	}

	result := CommandResult{
		Command:   cmdStr,
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		Duration:  time.Since(start),
		Timestamp: start,
	}
	if config.Sudo {
		if sudoErr := checkSudo(result); sudoErr != nil {
			return result, sudoErr
		}
	}

	var exitErr *ssh.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitStatus()
		return result, &CommandFailedError{Command: cmdStr, ExitCode: result.ExitCode, Stderr: result.STDERR}
	default:
		return result, fmt.Errorf("running %s on %s: %w", cmdStr, u.Hostname, err)
	}
}

// sshConfig builds the client configuration. When public key
// authentication is used the returned SSHKeyManager must be closed once the
// remote command has finished.
func (u *UnixCommandManager) sshConfig() (*ssh.ClientConfig, SSHKeyManager, error) {
	var authMethod ssh.AuthMethod
	var keyManager SSHKeyManager

	if u.Password != "" {
		u.log().WithField("host", u.Hostname).Debug("Using password authentication")
		authMethod = ssh.Password(u.Password)
	} else {
		u.log().WithField("host", u.Hostname).Debug("Using public key authentication")
		keyManager = &AgentSSHKeyManager{}
		if u.KeyPassphrase != "" {
			keyManager = FileSSHKeyManager{}
		}

		keys, err := keyManager.ReadPrivateKeys(u.KeyPassphrase)
		if err != nil {
			keyManager.Close()
			return nil, nil, err
		}
		authMethod = ssh.PublicKeys(keys...)
	}

	return &ssh.ClientConfig{
		User:            u.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: u.hostKeyCallback(),
	}, keyManager, nil
}

func (u *UnixCommandManager) hostKeyCallback() ssh.HostKeyCallback {
	home, err := os.UserHomeDir()
	if err == nil {
		if callback, err := knownhosts.New(filepath.Join(home, ".ssh", "known_hosts")); err == nil {
			return callback
		}
	}
	u.log().WithField("host", u.Hostname).Warn("No usable known_hosts file, host key will not be verified")
	return ssh.InsecureIgnoreHostKey()
}

func (u *UnixCommandManager) address() string {
	if _, _, err := net.SplitHostPort(u.Hostname); err == nil {
		return u.Hostname
	}
	return net.JoinHostPort(u.Hostname, "22")
}

func (u *UnixCommandManager) isLocal() bool {
	return u.Hostname == "" || u.Hostname == "localhost" || u.Hostname == "127.0.0.1"
}
