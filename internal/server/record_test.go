package server

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/proxyherd/internal/protocol"
)

func TestRecord(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Peer Record Reconstruction Suite")
}

var _ = Describe("recordFromAT", func() {
	It("rebuilds the canonical line from the verbatim wire tokens, not a reformatted skew", func() {
		// 0.2600 would lose its trailing zero if FormatSkew re-derived it from
		// the parsed float64 (0.26); the canonical line must stay byte-exact.
		line := "AT Clark +0.2600 kiwi.cs.ucla.edu +34.068930-118.445127 1621464827.959498503"
		msg := protocol.Decode(line)
		Expect(msg.Kind).To(Equal(protocol.KindAT))

		skew, err := parseSkew(msg.AT.SignedSkew)
		Expect(err).NotTo(HaveOccurred())

		rec := recordFromAT(msg.AT, skew)

		Expect(rec.CanonicalLine).To(Equal(line))
		Expect(rec.OriginServer).To(Equal("Clark"))
		Expect(rec.ClientID).To(Equal("kiwi.cs.ucla.edu"))
	})
})
