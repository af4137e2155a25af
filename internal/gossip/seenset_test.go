package gossip

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSeenSet(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Seen Set Suite")
}

var _ = Describe("seenSet", func() {
	It("reports a fresh fingerprint as not yet seen", func() {
		s := newSeenSet(4)
		Expect(s.insert(Fingerprint{OriginServer: "Bona", ClientID: "kiwi", ClientTime: "1"})).To(BeFalse())
	})

	It("reports a repeated fingerprint as already seen", func() {
		s := newSeenSet(4)
		f := Fingerprint{OriginServer: "Bona", ClientID: "kiwi", ClientTime: "1"}

		s.insert(f)
		Expect(s.insert(f)).To(BeTrue())
	})

	It("evicts the oldest fingerprint once at capacity", func() {
		s := newSeenSet(2)

		a := Fingerprint{OriginServer: "Bona", ClientID: "a", ClientTime: "1"}
		b := Fingerprint{OriginServer: "Bona", ClientID: "b", ClientTime: "1"}
		c := Fingerprint{OriginServer: "Bona", ClientID: "c", ClientTime: "1"}

		s.insert(a)
		s.insert(b)

		Expect(s.insert(c)).To(BeFalse(), "c is fresh and triggers eviction of a")
		Expect(s.insert(a)).To(BeFalse(), "a was evicted to make room for c, so it looks fresh again")
		Expect(s.insert(c)).To(BeTrue(), "c is still within capacity and should still read as seen")
	})
})
