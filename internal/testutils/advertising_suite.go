package testutils

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/bleadv/internal/advertising"
	"github.com/srg/bleadv/internal/comm"
	"github.com/srg/bleadv/internal/radio"
	"github.com/srg/bleadv/internal/radio/softdevice"
	"github.com/stretchr/testify/suite"
)

// AdvertisingSuite runs an advertising controller against the simulated
// SoftDevice. The radio is ticked by hand, so every test decides when an
// advertising event happens.
//
// Basic usage:
//
//	type SendSuite struct {
//	    testutils.AdvertisingSuite
//	}
//
//	func (s *SendSuite) TestSomething() {
//	    s.InitAndStart()
//	    s.Require().NoError(s.Controller.SetAdvertisementData([]byte{1}))
//	    s.Stack.Tick()
//	}
type AdvertisingSuite struct {
	suite.Suite

	Helper *TestHelper
	Logger *logrus.Logger

	Stack      *softdevice.Stack
	Arbiter    *radio.Arbiter
	Port       *comm.Port
	Controller *advertising.Controller
	Events     *EventRecorder
}

func (s *AdvertisingSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
}

// SetupTest builds a fresh stack, arbiter, port and controller
func (s *AdvertisingSuite) SetupTest() {
	s.Arbiter = radio.NewArbiter(s.Logger)
	s.Stack = softdevice.New(&softdevice.Options{
		Activity: s.Arbiter.Notify,
		LogSize:  64,
	}, s.Logger)
	s.Port = comm.NewPort()
	s.Events = &EventRecorder{}
	s.Controller = advertising.New(s.Stack, s.Arbiter, s.Logger)
}

func (s *AdvertisingSuite) TearDownTest() {
	if s.Controller != nil {
		_ = s.Controller.Uninit(s.Port)
	}
	if s.Stack != nil {
		s.Stack.Close()
	}
}

// InitController initializes the controller and installs the event recorder
func (s *AdvertisingSuite) InitController() {
	s.Require().NoError(s.Controller.Init(s.Port), "controller init MUST succeed")
	s.Port.SetOnEvent(s.Events.Handler())
}

// InitAndStart initializes the controller and starts advertising
func (s *AdvertisingSuite) InitAndStart() {
	s.InitController()
	s.Require().NoError(s.Controller.Start(), "advertising start MUST succeed")
}

// Handle returns the advertising set handle the controller owns
func (s *AdvertisingSuite) Handle() radio.Handle {
	return s.Controller.Status().Handle
}
