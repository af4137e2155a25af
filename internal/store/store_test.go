package store_test

import (
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/proxyherd/internal/store"
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Location Store Suite")
}

func rec(id, clientTime string) store.Record {
	return store.Record{
		ClientID:      id,
		Location:      "+34.068930-118.445127",
		ClientTime:    clientTime,
		OriginServer:  "Bona",
		CanonicalLine: "AT Bona +0 " + id + " +34.068930-118.445127 " + clientTime,
	}
}

var _ = Describe("Store", func() {
	var s *store.Store

	BeforeEach(func() {
		s = store.New()
	})

	It("accepts the first record for a client", func() {
		ok := s.Upsert(rec("kiwi", "100"))
		Expect(ok).To(BeTrue())

		got, found := s.Get("kiwi")
		Expect(found).To(BeTrue())
		Expect(got.ClientTime).To(Equal("100"))
	})

	It("accepts a record with a strictly newer client_time", func() {
		s.Upsert(rec("kiwi", "100"))
		ok := s.Upsert(rec("kiwi", "200"))

		Expect(ok).To(BeTrue())
		got, _ := s.Get("kiwi")
		Expect(got.ClientTime).To(Equal("200"))
	})

	It("rejects a record with an equal client_time, keeping the incumbent", func() {
		s.Upsert(rec("kiwi", "100"))
		ok := s.Upsert(store.Record{ClientID: "kiwi", ClientTime: "100", OriginServer: "Clark"})

		Expect(ok).To(BeFalse())
		got, _ := s.Get("kiwi")
		Expect(got.OriginServer).To(Equal("Bona"))
	})

	It("rejects a record with an older client_time", func() {
		s.Upsert(rec("kiwi", "200"))
		ok := s.Upsert(rec("kiwi", "100"))

		Expect(ok).To(BeFalse())
		got, _ := s.Get("kiwi")
		Expect(got.ClientTime).To(Equal("200"))
	})

	It("never lets a malformed client_time displace a well-formed incumbent", func() {
		s.Upsert(rec("kiwi", "100"))
		ok := s.Upsert(rec("kiwi", "not-a-number"))

		Expect(ok).To(BeFalse())
		got, _ := s.Get("kiwi")
		Expect(got.ClientTime).To(Equal("100"))
	})

	It("reports a miss for an unknown client", func() {
		_, found := s.Get("nobody")
		Expect(found).To(BeFalse())
	})

	It("tracks distinct clients independently under concurrent upserts", func() {
		var wg sync.WaitGroup
		ids := []string{"a", "b", "c", "d", "e"}

		for _, id := range ids {
			id := id
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Upsert(rec(id, "1"))
			}()
		}
		wg.Wait()

		Expect(s.Len()).To(Equal(len(ids)))
	})
})
