package server

import (
	"strconv"

	"github.com/nabbar/proxyherd/internal/protocol"
	"github.com/nabbar/proxyherd/internal/store"
)

func parseSkew(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// recordFromAT reconstructs a store.Record from a decoded peer AT message.
// The canonical line is rebuilt from the verbatim tokens the peer sent,
// never reformatted from the parsed skew, so it stays byte-identical to the
// line the origin server originally emitted.
func recordFromAT(m protocol.AT, skew float64) store.Record {
	return store.Record{
		ClientID:      m.ClientID,
		Location:      m.Location,
		ClientTime:    m.ClientTime,
		OriginServer:  m.OriginServer,
		TimeSkew:      skew,
		CanonicalLine: "AT " + m.OriginServer + " " + m.SignedSkew + " " + m.ClientID + " " + m.Location + " " + m.ClientTime,
	}
}
