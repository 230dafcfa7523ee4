package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/dcm-project/instance-dashboard/internal/config"
	"github.com/dcm-project/instance-dashboard/internal/credentials"
	"github.com/dcm-project/instance-dashboard/internal/gateway"
	"github.com/dcm-project/instance-dashboard/internal/instances"
	"github.com/go-kit/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const instancesJSON = `[
  {
    "id": 1,
    "name": "Sales",
    "description": null,
    "connectionStatus": "ONLINE",
    "ownerJid": "5511999999999@s.whatsapp.net",
    "profilePicUrl": "https://pps.whatsapp.net/v/sales.jpg",
    "createdAt": "2025-03-01T12:00:00.000Z",
    "updatedAt": "2025-03-02T08:30:00.000Z",
    "Auth": {"id": 1, "token": "t-1", "createdAt": "2025-03-01T12:00:00.000Z", "updatedAt": "2025-03-01T12:00:00.000Z"},
    "Webhook": {"id": 3, "enabled": true, "url": "https://hooks.example.com/sales", "events": {"messagesUpsert": true, "qrcodeUpdated": false}, "createdAt": "2025-03-01T12:00:00.000Z", "updatedAt": "2025-03-01T12:00:00.000Z"}
  },
  {"id": 2, "name": "Support", "connectionStatus": "offline", "createdAt": "2025-03-01T12:00:00Z", "updatedAt": "2025-03-01T12:00:00Z"}
]`

func testGatewayConfig(baseURL string) *config.GatewayConfig {
	return &config.GatewayConfig{
		BaseURL:   baseURL,
		Timeout:   2 * time.Second,
		RetryWait: 10 * time.Millisecond,
	}
}

var _ = Describe("Gateway", func() {
	var (
		ctx      context.Context
		calls    atomic.Int32
		lastKey  atomic.Value
		lastPath atomic.Value
	)

	newServer := func(status int, body string) *httptest.Server {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			lastKey.Store(r.Header.Get("apikey"))
			lastPath.Store(r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(body))
		}))
		DeferCleanup(server.Close)
		return server
	}

	BeforeEach(func() {
		ctx = context.Background()
		calls.Store(0)
		lastKey.Store("")
		lastPath.Store("")
	})

	Describe("FetchAll", func() {
		It("fetches and decodes the instance list", func() {
			server := newServer(http.StatusOK, instancesJSON)
			gw := gateway.NewGateway(testGatewayConfig(server.URL), log.NewNopLogger())

			items, err := gw.FetchAll(ctx, credentials.Credentials{APIKey: "k1"})

			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
			Expect(items[0].ID).To(Equal(int64(1)))
			Expect(items[0].Name).To(Equal("Sales"))
			Expect(items[0].ConnectionStatus).To(Equal(instances.StatusOnline))
			Expect(items[0].Webhook.Events).To(HaveKeyWithValue("messagesUpsert", true))
			Expect(items[0].Auth.Token).To(Equal("t-1"))
			Expect(items[0].CreatedAt.Year()).To(Equal(2025))
			Expect(items[1].ConnectionStatus).To(Equal(instances.StatusOffline))
		})

		It("sends the API key header to the fetchInstances path", func() {
			server := newServer(http.StatusOK, `[]`)
			gw := gateway.NewGateway(testGatewayConfig(server.URL+"/"), log.NewNopLogger())

			_, err := gw.FetchAll(ctx, credentials.Credentials{APIKey: "k1"})

			Expect(err).NotTo(HaveOccurred())
			Expect(lastKey.Load()).To(Equal("k1"))
			Expect(lastPath.Load()).To(Equal("/instance/fetchInstances"))
		})

		It("prefers the stored API URL over the configured default", func() {
			server := newServer(http.StatusOK, `[]`)
			gw := gateway.NewGateway(testGatewayConfig("http://127.0.0.1:1"), log.NewNopLogger())

			_, err := gw.FetchAll(ctx, credentials.Credentials{APIURL: server.URL, APIKey: "k1"})

			Expect(err).NotTo(HaveOccurred())
			Expect(calls.Load()).To(Equal(int32(1)))
		})

		It("accepts an object envelope with an instances array", func() {
			server := newServer(http.StatusOK, `{"instances": [{"id": 5, "name": "Envelope", "connectionStatus": "CONNECTING"}]}`)
			gw := gateway.NewGateway(testGatewayConfig(server.URL), log.NewNopLogger())

			items, err := gw.FetchAll(ctx, credentials.Credentials{APIKey: "k1"})

			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].ConnectionStatus).To(Equal(instances.StatusConnecting))
		})

		Context("without an API key", func() {
			It("fails with ErrMissingCredentials and performs no network I/O", func() {
				server := newServer(http.StatusOK, `[]`)
				gw := gateway.NewGateway(testGatewayConfig(server.URL), log.NewNopLogger())

				_, err := gw.FetchAll(ctx, credentials.Credentials{APIURL: server.URL})

				Expect(err).To(MatchError(gateway.ErrMissingCredentials))
				Expect(gateway.Kind(err)).To(Equal(gateway.KindMissingCredentials))
				Expect(calls.Load()).To(BeZero())
			})
		})

		It("fails with ErrMissingCredentials when no base URL can be resolved", func() {
			gw := gateway.NewGateway(testGatewayConfig(""), log.NewNopLogger())

			_, err := gw.FetchAll(ctx, credentials.Credentials{APIKey: "k1"})

			Expect(err).To(MatchError(gateway.ErrMissingCredentials))
		})

		It("returns an APIError carrying the status on a non-2xx response", func() {
			server := newServer(http.StatusUnauthorized, `{"message":"Unauthorized"}`)
			gw := gateway.NewGateway(testGatewayConfig(server.URL), log.NewNopLogger())

			_, err := gw.FetchAll(ctx, credentials.Credentials{APIKey: "bad"})

			var apiErr *gateway.APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.Status).To(Equal(http.StatusUnauthorized))
			Expect(apiErr.StatusText).To(Equal("Unauthorized"))
			Expect(err.Error()).To(ContainSubstring("401"))
			Expect(gateway.Kind(err)).To(Equal(gateway.KindAPI))
		})

		It("returns a NetworkError when the server cannot be reached", func() {
			server := httptest.NewServer(http.NotFoundHandler())
			url := server.URL
			server.Close()
			gw := gateway.NewGateway(testGatewayConfig(url), log.NewNopLogger())

			_, err := gw.FetchAll(ctx, credentials.Credentials{APIKey: "k1"})

			var netErr *gateway.NetworkError
			Expect(errors.As(err, &netErr)).To(BeTrue())
			Expect(gateway.Kind(err)).To(Equal(gateway.KindNetwork))
		})

		It("returns a TimeoutError when the server is too slow", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(300 * time.Millisecond)
				w.Write([]byte(`[]`))
			}))
			DeferCleanup(server.Close)
			cfg := testGatewayConfig(server.URL)
			cfg.Timeout = 50 * time.Millisecond
			gw := gateway.NewGateway(cfg, log.NewNopLogger())

			_, err := gw.FetchAll(ctx, credentials.Credentials{APIKey: "k1"})

			var timeoutErr *gateway.TimeoutError
			Expect(errors.As(err, &timeoutErr)).To(BeTrue())
			Expect(timeoutErr.Timeout).To(Equal(50 * time.Millisecond))
			Expect(gateway.Kind(err)).To(Equal(gateway.KindTimeout))
		})

		DescribeTable("rejects malformed bodies",
			func(body string) {
				server := newServer(http.StatusOK, body)
				gw := gateway.NewGateway(testGatewayConfig(server.URL), log.NewNopLogger())

				_, err := gw.FetchAll(ctx, credentials.Credentials{APIKey: "k1"})

				var malformed *gateway.MalformedResponseError
				Expect(errors.As(err, &malformed)).To(BeTrue(), "error: %v", err)
				Expect(gateway.Kind(err)).To(Equal(gateway.KindMalformedResponse))
			},
			Entry("invalid JSON", `[{"id": 1,`),
			Entry("empty body", ``),
			Entry("a scalar", `"instances"`),
			Entry("an object without instances", `{"data": []}`),
			Entry("instances that are not an array", `{"instances": {"id": 1}}`),
			Entry("an element without id", `[{"name": "No id", "connectionStatus": "ONLINE"}]`),
			Entry("an unknown status", `[{"id": 1, "name": "Odd", "connectionStatus": "SLEEPING"}]`),
			Entry("a wrongly typed id", `[{"id": "one", "name": "Odd", "connectionStatus": "ONLINE"}]`),
		)
	})
})

var _ = Describe("Kind", func() {
	It("returns an empty kind for nil", func() {
		Expect(gateway.Kind(nil)).To(BeEmpty())
	})

	It("returns unknown for foreign errors", func() {
		Expect(gateway.Kind(errors.New("boom"))).To(Equal(gateway.KindUnknown))
	})
})
