package main

import (
	"bytes"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/srg/bleadv/internal/radio"
	"github.com/srg/bleadv/internal/radio/softdevice"
	"github.com/srg/bleadv/pkg/config"
	"github.com/stretchr/testify/suite"
)

// CommandTestSuite runs commands against the simulated radio and keeps the
// stacks they opened for inspection. All cmd/bleadv suites embed it.
type CommandTestSuite struct {
	suite.Suite
	originalBackendFactory func(*config.Config, bool, radio.ActivityHandler, *logrus.Logger) (*backend, error)
	originalNoColor        bool

	mu   sync.Mutex
	sims []*softdevice.Stack
	logs string
}

// SetupTest isolates each test from the working directory config and
// records every simulated stack opened
func (s *CommandTestSuite) SetupTest() {
	s.T().Chdir(s.T().TempDir())

	s.originalNoColor = color.NoColor
	color.NoColor = true

	s.mu.Lock()
	s.sims = nil
	s.mu.Unlock()

	s.originalBackendFactory = BackendFactory
	original := BackendFactory
	BackendFactory = func(cfg *config.Config, autoTransmit bool, activity radio.ActivityHandler, logger *logrus.Logger) (*backend, error) {
		be, err := original(cfg, autoTransmit, activity, logger)
		if err == nil && be.sim != nil {
			s.mu.Lock()
			s.sims = append(s.sims, be.sim)
			s.mu.Unlock()
		}
		return be, err
	}
}

// TearDownTest restores package state
func (s *CommandTestSuite) TearDownTest() {
	BackendFactory = s.originalBackendFactory
	color.NoColor = s.originalNoColor
}

// Sims returns the simulated stacks opened so far
func (s *CommandTestSuite) Sims() []*softdevice.Stack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*softdevice.Stack(nil), s.sims...)
}

// Logs returns the log output of the last command
func (s *CommandTestSuite) Logs() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logs
}

// ExecuteCommand runs the root command with args and returns stdout and
// the error. Log output goes to a separate buffer.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	for _, c := range append(rootCmd.Commands(), rootCmd) {
		resetFlags(c)
	}

	out := new(bytes.Buffer)
	logs := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(logs)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	s.mu.Lock()
	s.logs = logs.String()
	s.mu.Unlock()
	return out.String(), err
}

// resetFlags restores every flag of cmd to its default
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
}
