package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/judgebench/pkg/config"
	"github.com/papercomputeco/judgebench/pkg/dispatch"
	"github.com/papercomputeco/judgebench/pkg/eventstream/nop"
	"github.com/papercomputeco/judgebench/pkg/logger"
	"github.com/papercomputeco/judgebench/pkg/pipeline"
	"github.com/papercomputeco/judgebench/pkg/storage/inmemory"
)

var _ = Describe("Build", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.NewDefaultConfig()
		cfg.Target.Endpoint = "http://localhost:1/v1/chat/completions"
		cfg.Target.Model = "candidate"
	})

	It("requires a target endpoint", func() {
		cfg.Target.Endpoint = ""
		_, err := pipeline.Build(cfg, nil, nil, pipeline.Hooks{}, logger.Nop())
		Expect(err).To(MatchError(dispatch.ErrConfiguration))
		Expect(err).To(MatchError(ContainSubstring("target model")))
		Expect(err).To(MatchError(ContainSubstring("endpoint is required")))
	})

	It("requires a target model", func() {
		cfg.Target.Model = ""
		_, err := pipeline.Build(cfg, nil, nil, pipeline.Hooks{}, logger.Nop())
		Expect(err).To(MatchError(dispatch.ErrConfiguration))
		Expect(err).To(MatchError(ContainSubstring("model is required")))
	})

	DescribeTable("reports a missing endpoint as a configuration error",
		func(clientName string) {
			_, err := pipeline.NewDispatcher(config.ModelConfig{
				Client: clientName,
				Model:  "m",
			}, logger.Nop())
			Expect(errors.Is(err, dispatch.ErrConfiguration)).To(BeTrue())
		},
		Entry("http client", pipeline.ClientHTTP),
		Entry("sdk client", pipeline.ClientSDK),
	)

	It("builds the sdk transport", func() {
		cfg.Target.Client = pipeline.ClientSDK
		cfg.Judge.Client = pipeline.ClientSDK
		_, err := pipeline.Build(cfg, nil, nil, pipeline.Hooks{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects the sdk transport with the text codec", func() {
		cfg.Judge.Client = pipeline.ClientSDK
		cfg.Judge.Provider = "text"
		_, err := pipeline.Build(cfg, nil, nil, pipeline.Hooks{}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("judge model")))
	})

	It("rejects unknown clients and providers", func() {
		cfg.Target.Client = "grpc"
		_, err := pipeline.Build(cfg, nil, nil, pipeline.Hooks{}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unknown client")))

		cfg.Target.Client = pipeline.ClientHTTP
		cfg.Target.Provider = "anthropic"
		_, err = pipeline.Build(cfg, nil, nil, pipeline.Hooks{}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unknown provider type")))
	})
})

var _ = Describe("OpenStorage", func() {
	ctx := context.Background()

	It("returns nil when storage is disabled", func() {
		driver, err := pipeline.OpenStorage(ctx, config.StorageConfig{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(driver).To(BeNil())
	})

	It("opens the in-memory driver", func() {
		driver, err := pipeline.OpenStorage(ctx, config.StorageConfig{Driver: pipeline.StorageMemory}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(driver).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("opens a sqlite database file", func() {
		dir, err := os.MkdirTemp("", "pipeline-storage-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		path := filepath.Join(dir, "runs.sqlite")
		driver, err := pipeline.OpenStorage(ctx, config.StorageConfig{Driver: pipeline.StorageSQLite, SQLitePath: path}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(driver.Close()).To(Succeed())
		Expect(path).To(BeAnExistingFile())
	})

	It("rejects unknown drivers", func() {
		_, err := pipeline.OpenStorage(ctx, config.StorageConfig{Driver: "mongo"}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unknown storage driver")))
	})
})

var _ = Describe("OpenPublisher", func() {
	It("defaults to the no-op publisher", func() {
		pub, err := pipeline.OpenPublisher(config.EventStreamConfig{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(pub).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("requires brokers for kafka", func() {
		_, err := pipeline.OpenPublisher(config.EventStreamConfig{Provider: pipeline.EventStreamKafka}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("broker")))
	})

	It("creates a kafka publisher without dialing", func() {
		pub, err := pipeline.OpenPublisher(config.EventStreamConfig{
			Provider: pipeline.EventStreamKafka,
			Brokers:  []string{"localhost:9092"},
			Topic:    "bench",
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(pub.Close()).To(Succeed())
	})

	It("rejects unknown providers", func() {
		_, err := pipeline.OpenPublisher(config.EventStreamConfig{Provider: "nats"}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unknown eventstream provider")))
	})
})
