package cmd

import (
	"context"
	"os"
	"time"

	"github.com/AzielCF/az-post/application"
	globalConfig "github.com/AzielCF/az-post/config"
	domainContent "github.com/AzielCF/az-post/domains/content"
	domainCredential "github.com/AzielCF/az-post/domains/credential"
	domainPost "github.com/AzielCF/az-post/domains/post"
	domainRecurrence "github.com/AzielCF/az-post/domains/recurrence"
	"github.com/AzielCF/az-post/domains/publisher"
	"github.com/AzielCF/az-post/infrastructure/database"
	valkeyInfra "github.com/AzielCF/az-post/infrastructure/valkey"
	"github.com/AzielCF/az-post/integrations/facebook"
	"github.com/AzielCF/az-post/integrations/instagram"
	"github.com/AzielCF/az-post/integrations/linkedin"
	"github.com/AzielCF/az-post/integrations/linkpreview"
	openaiIntegration "github.com/AzielCF/az-post/integrations/openai"
	"github.com/AzielCF/az-post/pkg/dispatchpool"
	"github.com/AzielCF/az-post/pkg/utils"
	"github.com/AzielCF/az-post/repository"
	"github.com/AzielCF/az-post/usecase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	db       *gorm.DB
	repo     *repository.GormRepository
	vkClient *valkeyInfra.Client
	pool     *dispatchpool.Pool
	registry *publisher.Registry

	dispatcher *application.Dispatcher

	scheduleUsecase   domainRecurrence.IScheduleUsecase
	timelineUsecase   domainPost.ITimelineUsecase
	contentUsecase    domainContent.IContentUsecase
	credentialUsecase domainCredential.ICredentialUsecase
)

var rootCmd = &cobra.Command{
	Use:   "az-post",
	Short: "Recurring social media post scheduler",
	Long: `az-post keeps one recurrence rule per user, fills a ledger of
scheduled posts from it and publishes them to LinkedIn, Facebook and
Instagram when they come due.`,
}

func init() {
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	cobra.OnInitialize(initApp)
}

func initApp() {
	cfg, err := globalConfig.Load()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := os.MkdirAll(cfg.App.StoragePath, 0o755); err != nil {
		logrus.Errorln(err)
	}
	cfg.App.ServerID = utils.GetPersistentServerID("", cfg.App.StoragePath)

	ctx := context.Background()

	db, err = database.New(cfg)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}

	repo = repository.NewGormRepository(db)
	if err := repo.Init(ctx); err != nil {
		logrus.Fatalf("failed to migrate database: %v", err)
	}

	if cfg.Valkey.Enabled {
		vkClient, err = valkeyInfra.NewClient(valkeyInfra.Config{
			Address:   cfg.Valkey.Address,
			Password:  cfg.Valkey.Password,
			DB:        cfg.Valkey.DB,
			KeyPrefix: cfg.Valkey.KeyPrefix,
		})
		if err != nil {
			logrus.WithError(err).Warn("[APP] Valkey unavailable, running single-instance")
			vkClient = nil
		}
	}

	registry, err = publisher.NewRegistry(
		linkedin.NewPublisher(cfg.Platforms.LinkedInBaseURL),
		facebook.NewPublisher(cfg.Platforms.FacebookBaseURL),
		instagram.NewPublisher(cfg.Platforms.InstagramBaseURL),
	)
	if err != nil {
		logrus.Fatalf("failed to assemble publisher registry: %v", err)
	}

	var generator domainContent.IGenerator
	if cfg.AI.OpenAIAPIKey != "" {
		generator, err = openaiIntegration.NewGenerator(cfg.AI.OpenAIAPIKey, cfg.AI.Model)
		if err != nil {
			logrus.WithError(err).Warn("[APP] Draft generation disabled")
		}
	} else {
		logrus.Info("[APP] OPENAI_API_KEY not set, draft generation disabled")
	}

	preview := linkpreview.NewClient()

	scheduleUsecase = usecase.NewScheduleService(repo, repo, repo, preview, vkClient)
	timelineUsecase = usecase.NewTimelineService(repo)
	contentUsecase = usecase.NewContentService(repo, generator)
	credentialUsecase = usecase.NewCredentialService(repo)

	pool = dispatchpool.New(cfg.Dispatch.WorkerPoolSize, cfg.Dispatch.WorkerQueue)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of the worker pool and connections.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if pool != nil {
		pool.Stop()
	}
	if vkClient != nil {
		vkClient.Close()
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
