package protocol_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/proxyherd/internal/protocol"
)

func TestProtocol(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Protocol Codec Suite")
}

var _ = Describe("Decode", func() {
	It("parses a well-formed IAMAT command", func() {
		msg := protocol.Decode("IAMAT kiwi.cs.ucla.edu +34.068930-118.445127 1621464827.959498503")

		Expect(msg.Kind).To(Equal(protocol.KindIAMAT))
		Expect(msg.IAMAT.ClientID).To(Equal("kiwi.cs.ucla.edu"))
		Expect(msg.IAMAT.Location).To(Equal("+34.068930-118.445127"))
		Expect(msg.IAMAT.ClientTime).To(Equal("1621464827.959498503"))
	})

	It("rejects an IAMAT with a malformed location", func() {
		msg := protocol.Decode("IAMAT kiwi.cs.ucla.edu notalocation 1621464827.959498503")
		Expect(msg.Kind).To(Equal(protocol.KindMalformed))
	})

	It("parses a well-formed WHATSAT command", func() {
		msg := protocol.Decode("WHATSAT kiwi.cs.ucla.edu 10 5")

		Expect(msg.Kind).To(Equal(protocol.KindWHATSAT))
		Expect(msg.WHATSAT.ClientID).To(Equal("kiwi.cs.ucla.edu"))
		Expect(msg.WHATSAT.RadiusKM).To(Equal(10))
		Expect(msg.WHATSAT.MaxResults).To(Equal(5))
	})

	DescribeTable("rejects WHATSAT with out-of-range radius or max_results",
		func(line string) {
			msg := protocol.Decode(line)
			Expect(msg.Kind).To(Equal(protocol.KindMalformed))
		},
		Entry("radius above the 50km cap", "WHATSAT kiwi.cs.ucla.edu 51 5"),
		Entry("max_results above the 20 cap", "WHATSAT kiwi.cs.ucla.edu 10 21"),
		Entry("negative radius", "WHATSAT kiwi.cs.ucla.edu -1 5"),
	)

	It("accepts WHATSAT exactly at the radius and max_results caps", func() {
		msg := protocol.Decode("WHATSAT kiwi.cs.ucla.edu 50 20")
		Expect(msg.Kind).To(Equal(protocol.KindWHATSAT))
		Expect(msg.WHATSAT.RadiusKM).To(Equal(50))
		Expect(msg.WHATSAT.MaxResults).To(Equal(20))
	})

	It("parses a well-formed AT record", func() {
		msg := protocol.Decode("AT Bona +0.263873386 kiwi.cs.ucla.edu +34.068930-118.445127 1621464827.959498503")

		Expect(msg.Kind).To(Equal(protocol.KindAT))
		Expect(msg.AT.OriginServer).To(Equal("Bona"))
		Expect(msg.AT.SignedSkew).To(Equal("+0.263873386"))
		Expect(msg.AT.ClientID).To(Equal("kiwi.cs.ucla.edu"))
	})

	It("rejects an AT record with an unsigned skew", func() {
		msg := protocol.Decode("AT Bona 0.263873386 kiwi.cs.ucla.edu +34.068930-118.445127 1621464827.959498503")
		Expect(msg.Kind).To(Equal(protocol.KindMalformed))
	})

	It("decodes an empty line as malformed", func() {
		msg := protocol.Decode("")
		Expect(msg.Kind).To(Equal(protocol.KindMalformed))
	})

	It("decodes an unrecognized command as malformed", func() {
		msg := protocol.Decode("HELLO there")
		Expect(msg.Kind).To(Equal(protocol.KindMalformed))
	})
})

var _ = Describe("FormatSkew", func() {
	It("prefixes a positive skew with +", func() {
		Expect(protocol.FormatSkew(0.263873386)).To(Equal("+0.263873386"))
	})

	It("prefixes exactly zero with +", func() {
		Expect(protocol.FormatSkew(0)).To(Equal("+0"))
	})

	It("keeps the implicit - sign for a negative skew", func() {
		Expect(protocol.FormatSkew(-1.5)).To(Equal("-1.5"))
	})
})

var _ = Describe("FormatAT", func() {
	It("renders the canonical AT line", func() {
		line := protocol.FormatAT("Bona", "kiwi.cs.ucla.edu", "+34.068930-118.445127", "1621464827.959498503", 0.263873386)
		Expect(line).To(Equal("AT Bona +0.263873386 kiwi.cs.ucla.edu +34.068930-118.445127 1621464827.959498503"))
	})
})

var _ = Describe("Unknown", func() {
	It("prefixes the original line with a question mark", func() {
		Expect(protocol.Unknown("GARBAGE input")).To(Equal("? GARBAGE input"))
	})
})
