package store_test

import (
	"context"
	"path/filepath"

	"github.com/dcm-project/instance-dashboard/internal/config"
	"github.com/dcm-project/instance-dashboard/internal/credentials"
	"github.com/dcm-project/instance-dashboard/internal/store"
	"github.com/dcm-project/instance-dashboard/internal/store/model"
	"github.com/go-kit/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Settings Store", func() {
	var (
		db            *gorm.DB
		settingsStore store.Settings
		ctx           context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&model.Setting{})).To(Succeed())

		settingsStore = store.NewSettings(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	Describe("Save and Load", func() {
		It("round-trips entries of a scope", func() {
			Expect(settingsStore.Save(ctx, "default", map[string]string{"apiKey": "k1", "apiUrl": "https://api.example.com"})).To(Succeed())

			values, err := settingsStore.Load(ctx, "default")

			Expect(err).NotTo(HaveOccurred())
			Expect(values).To(Equal(map[string]string{"apiKey": "k1", "apiUrl": "https://api.example.com"}))
		})

		It("returns an empty map for an unknown scope", func() {
			values, err := settingsStore.Load(ctx, "nobody")

			Expect(err).NotTo(HaveOccurred())
			Expect(values).To(BeEmpty())
		})

		It("overwrites an existing entry instead of duplicating it", func() {
			Expect(settingsStore.Save(ctx, "default", map[string]string{"apiKey": "old"})).To(Succeed())
			Expect(settingsStore.Save(ctx, "default", map[string]string{"apiKey": "new"})).To(Succeed())

			settings, err := settingsStore.List(ctx, "default")

			Expect(err).NotTo(HaveOccurred())
			Expect(settings).To(HaveLen(1))
			Expect(settings[0].Value).To(Equal("new"))
		})

		It("keeps scopes apart", func() {
			Expect(settingsStore.Save(ctx, "a", map[string]string{"apiKey": "ka"})).To(Succeed())
			Expect(settingsStore.Save(ctx, "b", map[string]string{"apiKey": "kb"})).To(Succeed())

			a, err := settingsStore.Load(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(a).To(Equal(map[string]string{"apiKey": "ka"}))
		})
	})
})

var _ = Describe("InitDB", func() {
	It("keeps credentials across a reopen of the database file", func() {
		cfg := &config.Config{Database: &config.DBConfig{
			Type: config.DBTypeSQLite,
			Path: filepath.Join(GinkgoT().TempDir(), "dashboard.db"),
		}}
		ctx := context.Background()

		db, err := store.InitDB(cfg)
		Expect(err).NotTo(HaveOccurred())
		first := store.NewStore(db)
		creds := credentials.NewStore(first.Settings(), "default", log.NewNopLogger())
		Expect(creds.Set(ctx, credentials.Credentials{APIURL: "https://api.example.com", APIKey: "k1"})).To(Succeed())
		Expect(first.Close()).To(Succeed())

		db, err = store.InitDB(cfg)
		Expect(err).NotTo(HaveOccurred())
		second := store.NewStore(db)
		defer second.Close()

		reopened := credentials.NewStore(second.Settings(), "default", log.NewNopLogger())
		Expect(reopened.Get(ctx)).To(Equal(credentials.Credentials{APIURL: "https://api.example.com", APIKey: "k1"}))
	})
})
