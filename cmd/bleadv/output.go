package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/srg/bleadv/internal/advertising"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	titleColor = color.New(color.Bold)
	keyColor   = color.New(color.FgCyan)
)

// report is an ordered set of named values, rendered as text or JSON
type report = orderedmap.OrderedMap[string, any]

func newReport() *report {
	return orderedmap.New[string, any]()
}

// hexString renders b as space separated upper-case hex
func hexString(b []byte) string {
	return fmt.Sprintf("% X", b)
}

// statusReport lists the controller state in a stable order
func statusReport(st advertising.Status) *report {
	r := newReport()
	r.Set("advertising", st.Advertising)
	r.Set("handle", int(st.Handle))
	r.Set("interval_ms", st.IntervalMs)
	r.Set("tx_power_dbm", st.TxPower)
	r.Set("manufacturer_id", fmt.Sprintf("0x%04X", st.ManufacturerID))
	r.Set("type", st.Type)
	r.Set("channels", enabledChannels(st.Channels))
	r.Set("in_flight_slot", st.InFlight)
	return r
}

func enabledChannels(ch advertising.Channels) []int {
	out := []int{}
	if ch.Ch37 {
		out = append(out, 37)
	}
	if ch.Ch38 {
		out = append(out, 38)
	}
	if ch.Ch39 {
		out = append(out, 39)
	}
	return out
}

// writeReport prints r under title. format is "text" or "json".
func writeReport(w io.Writer, format, title string, r *report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	if _, err := titleColor.Fprintln(w, title); err != nil {
		return err
	}
	for pair := r.Oldest(); pair != nil; pair = pair.Next() {
		keyColor.Fprintf(w, "  %-16s", pair.Key+":")
		if _, err := fmt.Fprintf(w, " %v\n", pair.Value); err != nil {
			return err
		}
	}
	return nil
}
