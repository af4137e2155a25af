package topology_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/proxyherd/internal/topology"
)

func TestTopology(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Topology Suite")
}

var _ = Describe("Default", func() {
	It("is internally consistent", func() {
		Expect(topology.Default().Validate()).To(BeNil())
	})

	It("lists all five configured server ids", func() {
		Expect(topology.Default().ServerIDs()).To(ConsistOf("Bailey", "Bona", "Campbell", "Clark", "Jaquez"))
	})

	It("resolves each neighbor to a host:port address", func() {
		addrs := topology.Default().NeighborAddresses("Bona")
		Expect(addrs).To(HaveKeyWithValue("Bailey", "127.0.0.1:12027"))
		Expect(addrs).To(HaveKeyWithValue("Clark", "127.0.0.1:12120"))
		Expect(addrs).To(HaveKeyWithValue("Campbell", "127.0.0.1:12089"))
	})

	It("reports Has for a configured server and not for an unknown one", func() {
		topo := topology.Default()
		Expect(topo.Has("Bona")).To(BeTrue())
		Expect(topo.Has("Nobody")).To(BeFalse())
	})
})

var _ = Describe("Validate", func() {
	It("rejects a neighbor reference to an unconfigured server", func() {
		topo := topology.Default()
		topo.Neighbors["Bona"] = append(topo.Neighbors["Bona"], "Ghost")

		Expect(topo.Validate()).NotTo(BeNil())
	})

	It("rejects an asymmetric neighbor graph", func() {
		topo := topology.Default()
		topo.Neighbors["Bona"] = []string{"Clark", "Campbell"} // drops the Bailey<->Bona edge on one side

		Expect(topo.Validate()).NotTo(BeNil())
	})
})

var _ = Describe("LoadOverride", func() {
	It("returns the base topology unchanged when no path is given", func() {
		base := topology.Default()
		out, err := topology.LoadOverride(base, "")

		Expect(err).To(BeNil())
		Expect(out).To(Equal(base))
	})

	It("applies only the fields set in the override file", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "topology.yaml")

		Expect(os.WriteFile(path, []byte("host: 0.0.0.0\n"), 0o644)).To(Succeed())

		out, err := topology.LoadOverride(topology.Default(), path)

		Expect(err).To(BeNil())
		Expect(out.Host).To(Equal("0.0.0.0"))
		Expect(out.Ports).To(Equal(topology.Default().Ports))
	})

	It("returns an error for a path that cannot be read", func() {
		_, err := topology.LoadOverride(topology.Default(), "/nonexistent/topology.yaml")
		Expect(err).NotTo(BeNil())
	})
})
