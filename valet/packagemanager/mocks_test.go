package packagemanager

import (
	"context"

	"github.com/stretchr/testify/mock"

	cm "github.com/steelcutops/valet/valet/commandmanager"
	"github.com/steelcutops/valet/valet/servicemanager"
)

// MockCommandManager matches calls on the rendered command line.
type MockCommandManager struct {
	mock.Mock
	calls *[]string
}

func (m *MockCommandManager) Run(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	line := config.String()
	if m.calls != nil {
		*m.calls = append(*m.calls, line)
	}
	args := m.Called(line)
	return args.Get(0).(cm.CommandResult), args.Error(1)
}

type MockServiceManager struct {
	mock.Mock
	calls *[]string
}

func (m *MockServiceManager) record(verb, name string) error {
	if m.calls != nil {
		*m.calls = append(*m.calls, "service "+verb+" "+name)
	}
	return m.MethodCalled(verb, name).Error(0)
}

func (m *MockServiceManager) EnableService(ctx context.Context, name string) error {
	return m.record("enable", name)
}

func (m *MockServiceManager) StartService(ctx context.Context, name string) error {
	return m.record("start", name)
}

func (m *MockServiceManager) StopService(ctx context.Context, name string) error {
	return m.record("stop", name)
}

func (m *MockServiceManager) RestartService(ctx context.Context, name string) error {
	return m.record("restart", name)
}

func (m *MockServiceManager) CheckServiceStatus(ctx context.Context, name string) (servicemanager.ServiceStatus, error) {
	args := m.Called("status", name)
	return args.Get(0).(servicemanager.ServiceStatus), args.Error(1)
}

func stdout(s string) cm.CommandResult {
	return cm.CommandResult{STDOUT: s}
}

func exitWith(code int, stderr string) error {
	return &cm.CommandFailedError{ExitCode: code, Stderr: stderr}
}
