package commandmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrIncorrectSudoPassword = errors.New("sudo: incorrect password provided")
	ErrNotSudoer             = errors.New("sudo: user is not in the sudoers file")
)

// CommandConfig describes a single command invocation.
type CommandConfig struct {
	Command string
	Args    []string
	Sudo    bool
	Env     []string // KEY=VALUE pairs passed through env(1)
}

// CommandResult encapsulates the results from a command execution.
type CommandResult struct {
	Command   string
	STDOUT    string
	STDERR    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// CommandManager executes commands synchronously, either locally or on a
// remote host. A process that exits non-zero yields a *CommandFailedError
// alongside the captured result.
type CommandManager interface {
	Run(ctx context.Context, config CommandConfig) (CommandResult, error)
}

// CommandFailedError is returned when a command ran but exited non-zero.
type CommandFailedError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandFailedError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// IsExitCode reports whether err is a CommandFailedError with the given exit code.
func IsExitCode(err error, code int) bool {
	var failed *CommandFailedError
	return errors.As(err, &failed) && failed.ExitCode == code
}

// CommandLine returns the argv that config expands to, including the sudo
// and env(1) prefixes.
func CommandLine(config CommandConfig) []string {
	argv := append([]string{config.Command}, config.Args...)
	if len(config.Env) > 0 {
		argv = append(append([]string{"env"}, config.Env...), argv...)
	}
	if config.Sudo {
		// the password arrives on stdin, so sudo must not print its prompt
		argv = append([]string{"sudo", "-S", "-p", ""}, argv...)
	}
	return argv
}

// String renders config as a single shell-safe command line.
func (config CommandConfig) String() string {
	argv := CommandLine(config)
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:,+@%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func checkSudo(result CommandResult) error {
	output := result.STDOUT + result.STDERR
	if strings.Contains(output, "incorrect password") {
		return ErrIncorrectSudoPassword
	}
	if strings.Contains(output, "is not in the sudoers file") {
		return ErrNotSudoer
	}
	return nil
}
