package peerlink_test

import (
	"context"
	"net"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/proxyherd/internal/peerlink"
	logger "github.com/nabbar/proxyherd/logger"
)

func TestPeerLink(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Peer Link Manager Suite")
}

var _ = Describe("Manager", func() {
	var log logger.Logger

	BeforeEach(func() {
		log = logger.New(context.Background())
	})

	It("reports Disconnected for a neighbor it has not dialed yet", func() {
		m := peerlink.New(log, map[string]string{"Bona": "127.0.0.1:1"}, 8)
		Expect(m.State("Bona")).To(Equal(peerlink.Disconnected))
	})

	It("reaches Connected once the neighbor accepts, and delivers its lines inbound", func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		defer ln.Close()

		accepted := make(chan net.Conn, 1)
		go func() {
			conn, err := ln.Accept()
			if err == nil {
				accepted <- conn
			}
		}()

		m := peerlink.New(log, map[string]string{"Bona": ln.Addr().String()}, 8)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go m.Run(ctx)

		var conn net.Conn
		Eventually(accepted, 2*time.Second).Should(Receive(&conn))
		defer conn.Close()

		Eventually(func() peerlink.State { return m.State("Bona") }, 2*time.Second).Should(Equal(peerlink.Connected))

		_, err = conn.Write([]byte("AT Bona +0 kiwi +34.068930-118.445127 100\n"))
		Expect(err).NotTo(HaveOccurred())

		var in peerlink.Inbound
		Eventually(m.Inbound(), 2*time.Second).Should(Receive(&in))
		Expect(in.Neighbor).To(Equal("Bona"))
		Expect(in.Line).To(Equal("AT Bona +0 kiwi +34.068930-118.445127 100"))
	})

	It("reports the configured neighbor identifiers", func() {
		m := peerlink.New(log, map[string]string{"Bona": "127.0.0.1:1", "Clark": "127.0.0.1:2"}, 8)
		Expect(m.Neighbors()).To(ConsistOf("Bona", "Clark"))
	})

	It("Send returns false for a neighbor that is not currently connected", func() {
		m := peerlink.New(log, map[string]string{"Bona": "127.0.0.1:1"}, 8)
		Expect(m.Send("Bona", "AT Bona +0 kiwi +34.068930-118.445127 100")).To(BeFalse())
	})
})
