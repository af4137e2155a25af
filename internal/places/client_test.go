package places_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/proxyherd/internal/places"
)

func TestPlaces(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Places Client Suite")
}

var _ = Describe("New", func() {
	It("refuses to build a client with an empty api key", func() {
		_, err := places.New("")
		Expect(err).NotTo(BeNil())
	})
})

var _ = Describe("Client.Lookup", func() {
	It("returns a pretty-printed, newline-collapsed body on success", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"results":[{"name":"a"},{"name":"b"},{"name":"c"}],"status":"OK"}`))
		}))
		defer srv.Close()

		c, err := places.New("test-key", places.WithBaseURL(srv.URL))
		Expect(err).To(BeNil())

		body := c.Lookup(context.Background(), 34.06893, -118.445127, 10, 2)

		Expect(body).To(ContainSubstring(`"name": "a"`))
		Expect(body).To(ContainSubstring(`"name": "b"`))
		Expect(body).NotTo(ContainSubstring(`"name": "c"`), "max_results should truncate the results array")
		Expect(body).NotTo(HaveSuffix("\n"))
	})

	It("returns an error JSON object when the upstream call fails", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c, err := places.New("test-key", places.WithBaseURL(srv.URL))
		Expect(err).To(BeNil())

		body := c.Lookup(context.Background(), 0, 0, 10, 5)

		Expect(body).To(ContainSubstring(`"error"`))
	})

	It("returns an error JSON object for an invalid response body", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		c, err := places.New("test-key", places.WithBaseURL(srv.URL))
		Expect(err).To(BeNil())

		body := c.Lookup(context.Background(), 0, 0, 10, 5)

		Expect(body).To(ContainSubstring(`"error"`))
	})
})
