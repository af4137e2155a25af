package session_test

import (
	"context"
	"net"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/proxyherd/internal/gossip"
	"github.com/nabbar/proxyherd/internal/session"
	"github.com/nabbar/proxyherd/internal/store"
	logger "github.com/nabbar/proxyherd/logger"
)

func TestSession(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Session Handler Suite")
}

type fixedLookup struct{ body string }

func (f fixedLookup) Lookup(_ context.Context, _, _ float64, _, _ int) string { return f.body }

type noopSender struct{}

func (noopSender) Send(string, string) bool { return false }
func (noopSender) Neighbors() []string      { return nil }

func newHandler(at time.Time) (*session.Handler, *store.Store) {
	st := store.New()
	log := logger.New(context.Background())
	engine := gossip.New(log, st, noopSender{}, 100)

	return &session.Handler{
		ServerID: "Bona",
		Store:    st,
		Gossip:   engine,
		Places:   fixedLookup{body: `{"results":[]}`},
		Log:      log,
		Now:      func() time.Time { return at },
	}, st
}

func serveOnPipe(h *session.Handler) net.Conn {
	client, server := net.Pipe()
	go h.Serve(context.Background(), server)
	return client
}

var _ = Describe("Handler", func() {
	It("answers IAMAT with a canonical AT line carrying the computed skew", func() {
		at := time.Unix(1621464828, 0)
		h, _ := newHandler(at)
		client := serveOnPipe(h)
		defer client.Close()

		_, err := client.Write([]byte("IAMAT kiwi.cs.ucla.edu +34.068930-118.445127 1621464827.959498503\n"))
		Expect(err).NotTo(HaveOccurred())

		buf := make([]byte, 4096)
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := client.Read(buf)
		Expect(err).NotTo(HaveOccurred())

		reply := string(buf[:n])
		Expect(reply).To(HavePrefix("AT Bona +"))
		Expect(reply).To(ContainSubstring("kiwi.cs.ucla.edu +34.068930-118.445127 1621464827.959498503"))
	})

	It("answers WHATSAT for a known client with the canonical line and a places body", func() {
		at := time.Unix(1621464828, 0)
		h, _ := newHandler(at)
		client := serveOnPipe(h)
		defer client.Close()

		client.Write([]byte("IAMAT kiwi.cs.ucla.edu +34.068930-118.445127 1621464827.959498503\n"))
		buf := make([]byte, 4096)
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		client.Read(buf)

		client.Write([]byte("WHATSAT kiwi.cs.ucla.edu 10 5\n"))
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := client.Read(buf)
		Expect(err).NotTo(HaveOccurred())

		reply := string(buf[:n])
		Expect(reply).To(ContainSubstring("AT Bona"))
		Expect(reply).To(ContainSubstring(`{"results":[]}`))
	})

	It("answers WHATSAT for an unknown client with the generic unknown-command reply", func() {
		h, _ := newHandler(time.Now())
		client := serveOnPipe(h)
		defer client.Close()

		line := "WHATSAT nobody.example.com 10 5"
		client.Write([]byte(line + "\n"))

		buf := make([]byte, 4096)
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := client.Read(buf)
		Expect(err).NotTo(HaveOccurred())

		Expect(string(buf[:n])).To(Equal("? " + line + "\n"))
	})

	It("replies with ? for a malformed line", func() {
		h, _ := newHandler(time.Now())
		client := serveOnPipe(h)
		defer client.Close()

		client.Write([]byte("GARBAGE input here\n"))

		buf := make([]byte, 4096)
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := client.Read(buf)
		Expect(err).NotTo(HaveOccurred())

		Expect(string(buf[:n])).To(Equal("? GARBAGE input here\n"))
	})

	It("applies an incoming AT record to the store without replying", func() {
		h, st := newHandler(time.Now())
		client := serveOnPipe(h)
		defer client.Close()

		client.Write([]byte("AT Clark +0.5 kiwi.cs.ucla.edu +34.068930-118.445127 1621464827.959498503\n"))

		Eventually(func() bool {
			_, found := st.Get("kiwi.cs.ucla.edu")
			return found
		}, 2*time.Second).Should(BeTrue())

		rec, _ := st.Get("kiwi.cs.ucla.edu")
		Expect(rec.OriginServer).To(Equal("Clark"))
		Expect(rec.CanonicalLine).To(Equal("AT Clark +0.5 kiwi.cs.ucla.edu +34.068930-118.445127 1621464827.959498503"))
	})
})
