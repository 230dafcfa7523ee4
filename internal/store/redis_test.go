package store_test

import (
	"context"
	"os"
	"time"

	"github.com/dcm-project/instance-dashboard/internal/store"
	"github.com/go-redis/redis/v8"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testRedisPrefix = "credentials-test"

var _ = Describe("Redis Settings", func() {
	var (
		client   redis.UniversalClient
		settings *store.RedisSettings
		ctx      context.Context
	)

	BeforeEach(func() {
		addr := os.Getenv("TEST_REDIS_URL")
		if addr == "" {
			addr = "redis://localhost:6379"
		}

		var err error
		client, err = store.NewRedisClient(addr)
		Expect(err).NotTo(HaveOccurred())

		pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			client = nil
			Skip("redis not reachable: " + err.Error())
		}

		ctx = context.Background()
		settings = store.NewRedisSettings(client, testRedisPrefix)
		client.Del(ctx, testRedisPrefix+":default", testRedisPrefix+":other")
	})

	AfterEach(func() {
		if client != nil {
			client.Del(ctx, testRedisPrefix+":default", testRedisPrefix+":other")
			client.Close()
		}
	})

	It("round-trips entries of a scope", func() {
		Expect(settings.Save(ctx, "default", map[string]string{"apiKey": "k1", "apiUrl": ""})).To(Succeed())

		values, err := settings.Load(ctx, "default")

		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(Equal(map[string]string{"apiKey": "k1", "apiUrl": ""}))
	})

	It("returns an empty map for an unknown scope", func() {
		values, err := settings.Load(ctx, "other")

		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(BeEmpty())
	})
})

var _ = Describe("NewRedisClient", func() {
	It("rejects a malformed URL", func() {
		_, err := store.NewRedisClient("://not-a-url")
		Expect(err).To(HaveOccurred())
	})
})
