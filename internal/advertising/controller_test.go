package advertising_test

import (
	"testing"

	"github.com/srg/bleadv/internal/advdata"
	"github.com/srg/bleadv/internal/advertising"
	"github.com/srg/bleadv/internal/comm"
	"github.com/srg/bleadv/internal/radio"
	"github.com/srg/bleadv/internal/status"
	"github.com/srg/bleadv/internal/testutils"
	"github.com/stretchr/testify/suite"
)

type ControllerSuite struct {
	testutils.AdvertisingSuite
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) TestInit() {
	s.Run("nil port", func() {
		s.ErrorIs(s.Controller.Init(nil), status.ErrNull)
	})

	s.InitController()

	st := s.Controller.Status()
	s.True(st.Initialized)
	s.False(st.Advertising)
	s.Equal(advertising.DefaultIntervalMs, st.IntervalMs)
	s.Equal(advertising.NonconnNonscan.String(), st.Type)
	s.Equal(-1, st.InFlight)
	s.Equal(radio.KindAdvertisement, s.Arbiter.Owner())
	s.Same(s.Controller, s.Port.Channel(), "init MUST bind the controller to the port")

	params, ok := s.Stack.Params(s.Handle())
	s.Require().True(ok, "init MUST create the advertising set")
	s.Equal(radio.AdvNonconnectableNonscannableUndirected, params.Type)
	s.Equal(radio.UnitsFromMs(advertising.DefaultIntervalMs), params.Interval)

	s.Run("second init", func() {
		s.ErrorIs(s.Controller.Init(s.Port), status.ErrInvalidState)
	})
}

func (s *ControllerSuite) TestInit_RadioBusy() {
	// GOAL: Verify advertising cannot claim a radio another purpose owns
	//
	// TEST SCENARIO: GATT claims radio → init → InvalidState, nothing bound

	s.Require().NoError(s.Arbiter.Init(radio.KindGATT))
	s.ErrorIs(s.Controller.Init(s.Port), status.ErrInvalidState)
	s.False(s.Controller.Status().Initialized)
	s.Nil(s.Port.Channel())
	s.Equal(radio.KindGATT, s.Arbiter.Owner())
}

func (s *ControllerSuite) TestSetInterval() {
	s.InitController()

	tests := []struct {
		name string
		ms   uint32
		err  error
	}{
		{name: "below minimum", ms: advertising.IntervalMinMs - 1, err: status.ErrInvalidParam},
		{name: "minimum", ms: advertising.IntervalMinMs},
		{name: "default", ms: advertising.DefaultIntervalMs},
		{name: "maximum", ms: advertising.IntervalMaxMs},
		{name: "above maximum", ms: advertising.IntervalMaxMs + 1, err: status.ErrInvalidParam},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			before := s.Controller.Interval()
			err := s.Controller.SetInterval(tt.ms)
			if tt.err != nil {
				s.ErrorIs(err, tt.err)
				s.Equal(before, s.Controller.Interval(), "rejected interval MUST leave state unchanged")
				return
			}
			s.Require().NoError(err)
			s.Equal(tt.ms, s.Controller.Interval())
		})
	}
}

func (s *ControllerSuite) TestSetInterval_WhileAdvertising() {
	// GOAL: Verify a parameter change while advertising is applied by
	// stopping, reconfiguring and restarting the set
	//
	// TEST SCENARIO: start → set 200 ms → stack params updated, still on air

	s.InitAndStart()
	s.Require().NoError(s.Controller.SetInterval(200))

	params, ok := s.Stack.Params(s.Handle())
	s.Require().True(ok)
	s.Equal(radio.UnitsFromMs(200), params.Interval)
	s.True(s.Stack.Advertising(s.Handle()), "advertising MUST resume after reconfigure")
	s.True(s.Controller.Advertising())
}

func (s *ControllerSuite) TestSetChannels() {
	// GOAL: Verify the channel selection reaches the stack, live while
	// advertising, and that disabling every channel is refused
	//
	// TEST SCENARIO: init → all channels → start → only 38 → stack mask 37+39
	// off, still advertising → none → InvalidParam, mask unchanged

	s.ErrorIs(s.Controller.SetChannels(advertising.AllChannels), status.ErrInvalidState)

	s.InitAndStart()
	s.Equal(advertising.AllChannels, s.Controller.Status().Channels)

	only38 := advertising.Channels{Ch38: true}
	s.Require().NoError(s.Controller.SetChannels(only38))
	s.True(s.Controller.Advertising())
	s.Equal(only38, s.Controller.Status().Channels)

	params, ok := s.Stack.Params(s.Handle())
	s.Require().True(ok)
	s.Equal(radio.Channel37Off|radio.Channel39Off, params.ChannelMask)

	s.ErrorIs(s.Controller.SetChannels(advertising.Channels{}), status.ErrInvalidParam)
	s.Equal(only38, s.Controller.Status().Channels, "refused selection MUST NOT change state")
}

func (s *ControllerSuite) TestSetType() {
	s.InitController()

	s.ErrorIs(s.Controller.SetType(advertising.Type(42)), status.ErrInvalidParam)

	tests := []struct {
		typ   advertising.Type
		stack radio.AdvType
	}{
		{typ: advertising.NonconnScan, stack: radio.AdvNonconnectableScannableUndirected},
		{typ: advertising.ConnNonscan, stack: radio.AdvExtendedConnectableNonscannableUndirected},
		{typ: advertising.ConnScan, stack: radio.AdvConnectableScannableUndirected},
		{typ: advertising.NonconnNonscan, stack: radio.AdvNonconnectableNonscannableUndirected},
	}

	s.Require().NoError(s.Controller.Start())
	for _, tt := range tests {
		s.Run(tt.typ.String(), func() {
			s.Require().NoError(s.Controller.SetType(tt.typ))
			params, _ := s.Stack.Params(s.Handle())
			s.Equal(tt.stack, params.Type)
			s.Equal(tt.typ.String(), s.Controller.Status().Type)
		})
	}
}

func (s *ControllerSuite) TestSetTxPower() {
	s.InitController()

	tests := []struct {
		name    string
		dbm     int8
		applied int8
		err     error
	}{
		{name: "exact top level", dbm: 4, applied: 4},
		{name: "rounds down to ladder", dbm: -5, applied: -8},
		{name: "between 0 and 4", dbm: 3, applied: 0},
		{name: "below bottom level", dbm: -50, applied: -40},
		{name: "above top level", dbm: 5, err: status.ErrInvalidParam},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			applied, err := s.Controller.SetTxPower(tt.dbm)
			if tt.err != nil {
				s.ErrorIs(err, tt.err)
				return
			}
			s.Require().NoError(err)
			s.Equal(tt.applied, applied)
			onStack, _ := s.Stack.TxPower(s.Handle())
			s.Equal(tt.applied, onStack, "stack MUST receive the quantized level")
		})
	}

	_, err := s.Controller.TxPower()
	s.ErrorIs(err, status.ErrNotImplemented)
}

func (s *ControllerSuite) TestSetAdvertisementData_Lengths() {
	s.InitController()

	for n := 0; n <= advertising.MaxManufacturerDataLen; n++ {
		s.NoError(s.Controller.SetAdvertisementData(make([]byte, n)), "%d bytes MUST be accepted", n)
	}

	s.ErrorIs(s.Controller.SetAdvertisementData(make([]byte, advertising.MaxManufacturerDataLen+1)), status.ErrInvalidLength)
	s.ErrorIs(s.Controller.SetAdvertisementData(nil), status.ErrNull)
}

func (s *ControllerSuite) TestSetAdvertisementData_Alternates() {
	// GOAL: Verify consecutive updates go to different slots and the stack
	// always reads the slot written last
	//
	// TEST SCENARIO: start → update A → slot 0 in flight → update B → slot 1
	// in flight, slot 0 still holds A

	s.InitAndStart()

	s.Require().NoError(s.Controller.SetAdvertisementData([]byte{0xAA}))
	s.Equal(0, s.Controller.Status().InFlight)
	onAir, _ := s.Stack.Data(s.Handle())
	s.Equal(s.Controller.AdvertisementBytes(0), onAir.Adv)

	s.Require().NoError(s.Controller.SetAdvertisementData([]byte{0xBB}))
	s.Equal(1, s.Controller.Status().InFlight)
	onAir, _ = s.Stack.Data(s.Handle())
	s.Equal(s.Controller.AdvertisementBytes(1), onAir.Adv)

	s.Equal([]byte{0xAA}, advdata.Decode(s.Controller.AdvertisementBytes(0)).Manufacturer.Data,
		"the previous slot MUST NOT be touched by the next update")

	for i := 0; i < 16; i++ {
		s.Require().NoError(s.Controller.SetAdvertisementData([]byte{byte(i)}),
			"live updates MUST never hand the stack its in-flight buffer")
		s.Equal(i%2, s.Controller.Status().InFlight)
	}
}

func (s *ControllerSuite) TestRoundTrip() {
	// GOAL: Verify the exact bytes put on air for a manufacturer record
	//
	// TEST SCENARIO: id 0x0499 + [01 02] → tick → flags + manufacturer data

	s.InitAndStart()
	s.Require().NoError(s.Controller.SetManufacturerID(0x0499))
	s.Require().NoError(s.Controller.SetAdvertisementData([]byte{0x01, 0x02}))

	s.Stack.Tick()
	txs := s.Stack.Transmissions()
	s.Require().Len(txs, 1)

	testutils.NewTextAsserter(s.T()).AssertBytes(txs[0].Adv,
		[]byte{0x02, 0x01, 0x04, 0x05, 0xFF, 0x99, 0x04, 0x01, 0x02})
}

func (s *ControllerSuite) TestManufacturerID_Unset() {
	s.InitAndStart()
	s.Equal(uint16(0), s.Controller.ManufacturerID())
	s.Require().NoError(s.Controller.SetAdvertisementData([]byte{0x01}))

	d := advdata.Decode(s.Controller.AdvertisementBytes(0))
	s.Require().NotNil(d.Manufacturer)
	s.Equal(advdata.UnknownCompanyID, d.Manufacturer.CompanyID)
}

func (s *ControllerSuite) TestSetupScanResponse() {
	// GOAL: Verify both scan response slots carry the same name and NUS UUID
	// and that scannable advertising puts them on air
	//
	// TEST SCENARIO: name "Ruuvi" + NUS → slots equal → scannable tick → on air
	// → refused while advertising → stop → rebuilt

	s.InitController()
	name := "Ruuvi"
	s.Require().NoError(s.Controller.SetupScanResponse(&name, true))
	s.Equal("Ruuvi", s.Stack.DeviceName())

	first, second := s.Controller.ScanResponseBytes(0), s.Controller.ScanResponseBytes(1)
	s.NotEmpty(first)
	s.Equal(first, second, "scan response slots MUST be identical")

	d := advdata.Decode(first)
	s.Equal("Ruuvi", d.Name)
	s.Require().Len(d.UUIDs, 1)
	s.True(d.UUIDs[0].Equal(advdata.NUSServiceUUID))

	s.Require().NoError(s.Controller.SetType(advertising.NonconnScan))
	s.Require().NoError(s.Controller.Start())
	s.Require().NoError(s.Controller.SetAdvertisementData([]byte{0x01}))
	s.Stack.Tick()
	txs := s.Stack.Transmissions()
	s.Require().Len(txs, 1)
	s.Equal(first, txs[0].ScanRsp)

	s.Run("while advertising", func() {
		other := "Other"
		s.ErrorIs(s.Controller.SetupScanResponse(&other, false), status.ErrInvalidState)
		s.Equal(first, s.Controller.ScanResponseBytes(0), "refused call MUST NOT touch the slots")
		s.Equal(first, s.Controller.ScanResponseBytes(1))
		s.Equal("Ruuvi", s.Stack.DeviceName())
	})

	s.Require().NoError(s.Controller.Stop())

	s.Run("without name or UUID", func() {
		s.Require().NoError(s.Controller.SetupScanResponse(nil, false))
		s.Empty(s.Controller.ScanResponseBytes(0))
		s.Empty(s.Controller.ScanResponseBytes(1))
	})

	s.Run("name too long to fit next to the UUID", func() {
		long := "a-device-name-that-is-too-long"
		s.ErrorIs(s.Controller.SetupScanResponse(&long, true), status.ErrInvalidLength)
	})
}

func (s *ControllerSuite) TestSend() {
	// GOAL: Verify sending requires an active advertiser, including after the
	// stack stopped advertising on its own
	//
	// TEST SCENARIO: send idle → InvalidState; start → send ok; notify stop →
	// send → InvalidState

	s.InitController()
	msg := &comm.Message{Data: []byte{0x01, 0x02}}

	s.ErrorIs(s.Port.Send(msg), status.ErrInvalidState)

	s.Require().NoError(s.Controller.Start())
	s.Require().NoError(s.Port.Send(msg))
	d := advdata.Decode(s.Controller.AdvertisementBytes(0))
	s.Require().NotNil(d.Manufacturer)
	s.Equal(msg.Data, d.Manufacturer.Data)

	s.ErrorIs(s.Port.Send(&comm.Message{Data: make([]byte, 25)}), status.ErrInvalidLength)
	s.ErrorIs(s.Controller.Send(nil), status.ErrNull)

	s.Controller.NotifyStop()
	s.ErrorIs(s.Port.Send(msg), status.ErrInvalidState)

	s.ErrorIs(s.Port.Read(&comm.Message{}), status.ErrNotImplemented)
}

func (s *ControllerSuite) TestActivity() {
	// GOAL: Verify every completed radio event reaches the port as one Sent
	// event and the Before edge is ignored
	//
	// TEST SCENARIO: start → 3 ticks → 3 Sent events

	s.InitAndStart()
	s.Require().NoError(s.Controller.SetAdvertisementData([]byte{0x01}))

	for i := 0; i < 3; i++ {
		s.Stack.Tick()
	}
	s.Equal([]comm.Event{comm.EventSent, comm.EventSent, comm.EventSent}, s.Events.Events())

	s.Controller.ActivityHandler(radio.ActivityBefore)
	s.Equal(3, s.Events.Count(comm.EventSent), "Before edge MUST NOT dispatch")
}

func (s *ControllerSuite) TestStop() {
	s.InitAndStart()
	s.Require().NoError(s.Controller.Stop())
	s.False(s.Stack.Advertising(s.Handle()))
	s.False(s.Controller.Advertising())

	s.ErrorIs(s.Controller.Stop(), status.ErrInvalidState, "stack MUST refuse stopping an idle set")
}

func (s *ControllerSuite) TestUninit() {
	// GOAL: Verify uninit stops advertising, releases the radio and makes
	// every configuration call fail until the next init
	//
	// TEST SCENARIO: start → uninit → setters InvalidState → init → works

	s.InitAndStart()
	s.Require().NoError(s.Controller.Uninit(s.Port))

	s.False(s.Stack.Advertising(s.Handle()))
	s.Equal(radio.KindNone, s.Arbiter.Owner())
	s.Nil(s.Port.Channel(), "uninit MUST unbind the port")
	s.False(s.Port.HasListener())

	name := "x"
	_, txErr := s.Controller.SetTxPower(0)
	for op, err := range map[string]error{
		"interval":     s.Controller.SetInterval(500),
		"manufacturer": s.Controller.SetManufacturerID(1),
		"type":         s.Controller.SetType(advertising.ConnScan),
		"tx_power":     txErr,
		"scan":         s.Controller.SetupScanResponse(&name, false),
		"data":         s.Controller.SetAdvertisementData([]byte{1}),
		"start":        s.Controller.Start(),
		"stop":         s.Controller.Stop(),
	} {
		s.ErrorIs(err, status.ErrInvalidState, "%s after uninit MUST fail", op)
	}
	s.Zero(s.Controller.Interval())

	s.NoError(s.Controller.Uninit(s.Port), "second uninit MUST be a no-op")

	s.InitAndStart()
	s.Require().NoError(s.Controller.SetAdvertisementData([]byte{1}))
}

func (s *ControllerSuite) TestReinit_LiveUpdates() {
	// GOAL: Verify a controller re-initialized on a set that already carried
	// data keeps updating live without touching the buffer the stack reads
	//
	// TEST SCENARIO: start → data → uninit (stack detached) → init → start →
	// two sends succeed, each leaving the previous on-air bytes intact

	s.InitAndStart()
	s.Require().NoError(s.Controller.SetAdvertisementData([]byte{0x01, 0x02}))
	s.Require().NoError(s.Controller.Uninit(s.Port))

	detached, ok := s.Stack.Data(s.Handle())
	s.Require().True(ok)
	s.Empty(detached.Adv, "uninit MUST take the slots back from the stack")

	s.InitAndStart()
	st := s.Controller.Status()
	s.Equal(-1, st.InFlight)
	s.Equal([2]int{0, 0}, st.AdvLen, "init MUST zero every slot")

	for _, payload := range [][]byte{{0x03, 0x04}, {0x05, 0x06}} {
		before, _ := s.Stack.Data(s.Handle())
		snapshot := append([]byte(nil), before.Adv...)

		s.Require().NoError(s.Port.Send(&comm.Message{Data: payload}), "send after start MUST succeed")
		s.Equal(snapshot, before.Adv, "the buffer in flight MUST NOT be written")

		onAir, _ := s.Stack.Data(s.Handle())
		s.Equal(payload, advdata.Decode(onAir.Adv).Manufacturer.Data)
	}

	s.Stack.Tick()
	tx := s.Stack.Transmissions()
	s.Require().Len(tx, 1)
	s.Equal([]byte{0x05, 0x06}, advdata.Decode(tx[0].Adv).Manufacturer.Data)
}
