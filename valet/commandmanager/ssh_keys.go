package commandmanager

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

var ErrNoPrivateKeys = errors.New("no usable private keys found")

// SSHKeyManager supplies signers for public key authentication. The signers
// stay usable until Close is called.
type SSHKeyManager interface {
	ReadPrivateKeys(keyPassphrase string) ([]ssh.Signer, error)
	Close() error
}

// FileSSHKeyManager loads ~/.ssh/id_* private keys.
type FileSSHKeyManager struct {
	Dir string
}

// AgentSSHKeyManager asks an SSH agent for signers. Socket defaults to
// SSH_AUTH_SOCK. Every signature goes through the agent connection, so it
// is held open until Close.
type AgentSSHKeyManager struct {
	Socket string

	conn net.Conn
}

func (km *AgentSSHKeyManager) ReadPrivateKeys(_ string) ([]ssh.Signer, error) {
	socket := km.Socket
	if socket == "" {
		socket = os.Getenv("SSH_AUTH_SOCK")
	}
	if socket == "" {
		return nil, errors.New("SSH_AUTH_SOCK not set")
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("could not connect to SSH agent: %w", err)
	}

	signers, err := agent.NewClient(conn).Signers()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not get signers from SSH agent: %w", err)
	}
	if km.conn != nil {
		km.conn.Close()
	}
	km.conn = conn
	return signers, nil
}

func (km *AgentSSHKeyManager) Close() error {
	if km.conn == nil {
		return nil
	}
	err := km.conn.Close()
	km.conn = nil
	return err
}

// Close is a no-op, file signers hold no resources.
func (km FileSSHKeyManager) Close() error {
	return nil
}

func (km FileSSHKeyManager) ReadPrivateKeys(keyPassphrase string) ([]ssh.Signer, error) {
	dir := km.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".ssh")
	}

	files, err := filepath.Glob(filepath.Join(dir, "id_*"))
	if err != nil {
		return nil, err
	}

	var signers []ssh.Signer
	for _, file := range files {
		if strings.HasSuffix(file, ".pub") {
			continue
		}

		keyBytes, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		var signer ssh.Signer
		if keyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(keyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
		}
		if err != nil {
			// wrong passphrase or unsupported format; try the next key
			continue
		}
		signers = append(signers, signer)
	}

	if len(signers) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPrivateKeys, dir)
	}
	return signers, nil
}
