package goble

import (
	"context"
	"testing"
	"time"

	"github.com/srg/bleadv/internal/advdata"
	"github.com/srg/bleadv/internal/radio"
	"github.com/srg/bleadv/internal/status"
	"github.com/srg/bleadv/internal/testutils"
	"github.com/srg/bleadv/internal/testutils/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type advertised struct {
	id   uint16
	data []byte
}

type GoBLEStackSuite struct {
	suite.Suite

	helper          *testutils.TestHelper
	originalFactory func() (Advertiser, error)
	dev             *mocks.MockAdvertiser
	calls           chan advertised
	stack           *Stack
}

func (s *GoBLEStackSuite) SetupTest() {
	s.helper = testutils.NewTestHelper(s.T())
	s.originalFactory = DeviceFactory

	s.calls = make(chan advertised, 8)
	s.dev = mocks.NewMockAdvertiser(s.T())
	s.dev.EXPECT().AdvertiseMfgData(mock.Anything, mock.Anything, mock.Anything).
		Run(func(ctx context.Context, id uint16, b []byte) {
			s.calls <- advertised{id: id, data: b}
			<-ctx.Done()
		}).
		Return(context.Canceled).
		Maybe()
	s.dev.EXPECT().Stop().Return(nil).Maybe()

	DeviceFactory = func() (Advertiser, error) { return s.dev, nil }

	var err error
	s.stack, err = New(s.helper.Logger)
	s.Require().NoError(err)
}

func (s *GoBLEStackSuite) TearDownTest() {
	s.Require().NoError(s.stack.Close())
	DeviceFactory = s.originalFactory
}

func (s *GoBLEStackSuite) encode(id uint16, payload []byte) []byte {
	var buf [radio.MaxAdvDataLen]byte
	n, err := advdata.Encode(&advdata.Record{
		Flags:        advdata.FlagBREDRNotSupported,
		Manufacturer: &advdata.ManufacturerData{CompanyID: id, Data: payload},
	}, buf[:])
	s.Require().NoError(err)
	return buf[:n]
}

func (s *GoBLEStackSuite) nextCall() advertised {
	select {
	case c := <-s.calls:
		return c
	case <-time.After(2 * time.Second):
		s.FailNow("host advertiser was not started")
		return advertised{}
	}
}

func (s *GoBLEStackSuite) newSet() radio.Handle {
	h := radio.HandleNotSet
	code := s.stack.Configure(&h, nil, &radio.Params{
		Type:     radio.AdvNonconnectableNonscannableUndirected,
		Interval: radio.UnitsFromMs(100),
	})
	s.Require().Equal(status.CodeSuccess, code)
	s.Require().Equal(radio.Handle(0), h)
	return h
}

func (s *GoBLEStackSuite) TestDataUpdateRestartsAdvertiser() {
	// GOAL: Verify every data update while advertising restarts the host
	// advertiser with the decoded manufacturer record
	//
	// TEST SCENARIO: configure → data A → start → A on air → data B → B on air

	h := s.newSet()
	s.Require().Equal(status.CodeSuccess, s.stack.Configure(&h, &radio.Data{Adv: s.encode(0x0499, []byte{1, 2})}, nil))
	s.Require().Equal(status.CodeSuccess, s.stack.Start(h, radio.DefaultConnTag))

	first := s.nextCall()
	s.Equal(uint16(0x0499), first.id)
	s.Equal([]byte{1, 2}, first.data)

	s.Require().Equal(status.CodeSuccess, s.stack.Configure(&h, &radio.Data{Adv: s.encode(0x0499, []byte{3})}, nil))
	second := s.nextCall()
	s.Equal([]byte{3}, second.data, "restarted advertiser MUST carry the new payload")

	s.Equal(status.CodeSuccess, s.stack.Stop(h))
	s.False(s.stack.Advertising())
}

func (s *GoBLEStackSuite) TestEmptyDataDetaches() {
	// GOAL: Verify an empty advertisement drops the current record instead
	// of being refused, so the caller can take its buffers back
	//
	// TEST SCENARIO: data A → start → empty data → advertiser stopped, no
	// restart → data B → B on air

	h := s.newSet()
	s.Require().Equal(status.CodeSuccess, s.stack.Configure(&h, &radio.Data{Adv: s.encode(0x0499, []byte{1})}, nil))
	s.Require().Equal(status.CodeSuccess, s.stack.Start(h, radio.DefaultConnTag))
	s.Equal([]byte{1}, s.nextCall().data)

	s.Require().Equal(status.CodeSuccess, s.stack.Configure(&h, &radio.Data{}, nil))
	s.Empty(s.calls, "detached stack MUST NOT advertise a record")

	s.Require().Equal(status.CodeSuccess, s.stack.Configure(&h, &radio.Data{Adv: s.encode(0x0499, []byte{2})}, nil))
	s.Equal([]byte{2}, s.nextCall().data)
}

func (s *GoBLEStackSuite) TestSingleSet() {
	s.newSet()

	h := radio.HandleNotSet
	s.Equal(status.CodeNoMem, s.stack.Configure(&h, nil, &radio.Params{Interval: 160}))

	other := radio.Handle(3)
	s.Equal(status.CodeNotFound, s.stack.Configure(&other, nil, nil))
	s.Equal(status.CodeNotFound, s.stack.Start(other, radio.DefaultConnTag))
	s.Equal(status.CodeNull, s.stack.Configure(nil, nil, nil))
}

func (s *GoBLEStackSuite) TestStateErrors() {
	h := s.newSet()

	s.Equal(status.CodeInvalidState, s.stack.Stop(h), "stop while idle MUST fail")
	s.Require().Equal(status.CodeSuccess, s.stack.Start(h, radio.DefaultConnTag))
	s.Equal(status.CodeInvalidState, s.stack.Start(h, radio.DefaultConnTag))
	s.Equal(status.CodeInvalidState, s.stack.Configure(&h, nil, &radio.Params{Interval: 160}),
		"params MUST NOT change while advertising")

	s.Equal(status.CodeInvalidData, s.stack.Configure(&h, &radio.Data{Adv: []byte{0x02, 0x01, 0x04}}, nil),
		"advertisement without manufacturer data MUST be refused")
}

func (s *GoBLEStackSuite) TestTxPowerAndName() {
	h := s.newSet()

	s.Equal(status.CodeNotSupported, s.stack.SetTxPower(radio.RoleConn, h, 0))
	s.Equal(status.CodeSuccess, s.stack.SetTxPower(radio.RoleAdv, h, -8))
	s.Equal(int8(-8), s.stack.TxPower())

	s.Equal(status.CodeSuccess, s.stack.SetDeviceName(radio.SecurityOpen, []byte("Ruuvi")))
	s.Equal("Ruuvi", s.stack.DeviceName())
}

func (s *GoBLEStackSuite) TestActivityPerInterval() {
	// GOAL: Verify the backend reports one Before/After pair per interval
	//
	// TEST SCENARIO: start with 100 ms interval → wait → After edges observed

	edges := make(chan radio.Activity, 16)
	s.stack.SetActivityHandler(func(evt radio.Activity) {
		select {
		case edges <- evt:
		default:
		}
	})

	h := s.newSet()
	s.Require().Equal(status.CodeSuccess, s.stack.Start(h, radio.DefaultConnTag))

	s.Require().Eventually(func() bool { return len(edges) >= 2 }, 2*time.Second, 10*time.Millisecond)
	s.Equal(radio.ActivityBefore, <-edges)
	s.Equal(radio.ActivityAfter, <-edges)
}

func TestGoBLEStackSuite(t *testing.T) {
	suite.Run(t, new(GoBLEStackSuite))
}

func TestNew_FactoryError(t *testing.T) {
	original := DeviceFactory
	t.Cleanup(func() { DeviceFactory = original })

	DeviceFactory = func() (Advertiser, error) { return nil, context.DeadlineExceeded }
	_, err := New(nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
