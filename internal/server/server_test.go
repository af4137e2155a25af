package server_test

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/proxyherd/internal/server"
	"github.com/nabbar/proxyherd/internal/topology"
	logger "github.com/nabbar/proxyherd/logger"
)

func TestServer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Server Wiring Suite")
}

type fixedLookup struct{}

func (fixedLookup) Lookup(_ context.Context, _, _ float64, _, _ int) string { return `{"results":[]}` }

func freePort() int {
	ln, _ := net.Listen("tcp", "127.0.0.1:0")
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

var _ = Describe("Server", func() {
	It("relays an IAMAT-derived location from one node to its directly connected peer", func() {
		portA, portB := freePort(), freePort()

		topo := topology.Topology{
			Host:            "127.0.0.1",
			Ports:           map[string]int{"A": portA, "B": portB},
			Neighbors:       map[string][]string{"A": {"B"}, "B": {"A"}},
			MaxRadiusKM:     50,
			MaxResults:      20,
			MaxSeenMessages: 100,
			Retry:           topology.Retry{InitialSeconds: 1, Factor: 2, CapSeconds: 60},
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		srvA, err := server.New("A", topo, logger.New(ctx), fixedLookup{})
		Expect(err).To(BeNil())
		srvB, err := server.New("B", topo, logger.New(ctx), fixedLookup{})
		Expect(err).To(BeNil())

		go srvA.Run(ctx)
		go srvB.Run(ctx)

		Eventually(func() error {
			_, e := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", portA))
			return e
		}, 2*time.Second).Should(Succeed())

		conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", portA))
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		_, err = conn.Write([]byte("IAMAT kiwi.cs.ucla.edu +34.068930-118.445127 1621464827.959498503\n"))
		Expect(err).NotTo(HaveOccurred())

		reader := bufio.NewReader(conn)
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		reply, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(HavePrefix("AT A +"))

		connB, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", portB))
		Expect(err).NotTo(HaveOccurred())
		defer connB.Close()

		Eventually(func() string {
			connB.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, werr := connB.Write([]byte("WHATSAT kiwi.cs.ucla.edu 10 5\n"))
			if werr != nil {
				return ""
			}
			buf := make([]byte, 4096)
			n, rerr := connB.Read(buf)
			if rerr != nil {
				return ""
			}
			return string(buf[:n])
		}, 5*time.Second, 200*time.Millisecond).Should(ContainSubstring("AT A"))
	})
})
