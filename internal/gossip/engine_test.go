package gossip_test

import (
	"context"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/proxyherd/internal/gossip"
	"github.com/nabbar/proxyherd/internal/store"
	logger "github.com/nabbar/proxyherd/logger"
)

func TestGossip(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Gossip Engine Suite")
}

type fakeSender struct {
	mu        sync.Mutex
	neighbors []string
	sent      []string
}

func (f *fakeSender) Neighbors() []string { return f.neighbors }

func (f *fakeSender) Send(neighbor, line string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, neighbor)
	return true
}

func (f *fakeSender) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

func rec(origin, client, clientTime string) store.Record {
	return store.Record{
		ClientID:      client,
		Location:      "+34.068930-118.445127",
		ClientTime:    clientTime,
		OriginServer:  origin,
		CanonicalLine: "AT " + origin + " +0 " + client + " +34.068930-118.445127 " + clientTime,
	}
}

var _ = Describe("Engine.Submit", func() {
	var (
		st     *store.Store
		peers  *fakeSender
		engine *gossip.Engine
		log    logger.Logger
	)

	BeforeEach(func() {
		st = store.New()
		peers = &fakeSender{neighbors: []string{"Bailey", "Campbell", "Jaquez"}}
		log = logger.New(context.Background())
		engine = gossip.New(log, st, peers, 1000)
	})

	It("accepts a new record and floods it to every neighbor except the source", func() {
		engine.Submit(rec("Bona", "kiwi", "100"), "Campbell")
		engine.Wait()

		got, found := st.Get("kiwi")
		Expect(found).To(BeTrue())
		Expect(got.ClientTime).To(Equal("100"))

		Expect(peers.sentTo()).To(ConsistOf("Bailey", "Jaquez"))
	})

	It("never re-floods a fingerprint it has already seen (loop suppression)", func() {
		r := rec("Bona", "kiwi", "100")

		engine.Submit(r, "Campbell")
		engine.Wait()

		peers.mu.Lock()
		peers.sent = nil
		peers.mu.Unlock()

		engine.Submit(r, "Bailey")
		engine.Wait()

		Expect(peers.sentTo()).To(BeEmpty())
	})

	It("lets a strictly newer record from a different origin override the store (LWW dominance)", func() {
		engine.Submit(rec("Bona", "kiwi", "100"), "")
		engine.Wait()

		engine.Submit(rec("Clark", "kiwi", "200"), "")
		engine.Wait()

		got, _ := st.Get("kiwi")
		Expect(got.OriginServer).To(Equal("Clark"))
		Expect(got.ClientTime).To(Equal("200"))
	})

	It("does not flood a record that loses the LWW comparison", func() {
		engine.Submit(rec("Bona", "kiwi", "200"), "")
		engine.Wait()

		peers.mu.Lock()
		peers.sent = nil
		peers.mu.Unlock()

		engine.Submit(rec("Clark", "kiwi", "100"), "")
		engine.Wait()

		Expect(peers.sentTo()).To(BeEmpty())
	})
})
