package wire

import (
	"Helpdock/internal/api"
	"Helpdock/internal/api/config"
	"Helpdock/internal/api/handler"
	"Helpdock/internal/job"
	"Helpdock/internal/pkg/broker"
	"Helpdock/internal/pkg/cron"
	"Helpdock/internal/pkg/es"
	"Helpdock/internal/pkg/kafka"
	"Helpdock/internal/pkg/minio"
	"Helpdock/internal/pkg/mongo"
	"Helpdock/internal/pkg/redis"
	"Helpdock/internal/repository"
	"Helpdock/internal/service"
	log "log/slog"
	"time"

	"github.com/gin-gonic/gin"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router  *gin.Engine
	DB      *gorm.DB
	CronMgr *cron.Manager
	// KafkaManager 与 Producer 在未配置 Kafka 时为空
	KafkaManager *kafka.ConsumerManager
	Producer     *kafka.Producer
}

func BuildApplication(db *gorm.DB, mongoDB *mongodrv.Database, cfg *config.Config) (*ApplicationContainer, error) {
	// MySQL
	tenantRepo := repository.NewTenantRepo(db)
	planConfigRepo := repository.NewPlanConfigRepo(db)
	upgradeRepo := repository.NewUpgradeRequestRepo(db)

	// Mongo
	workspaceRepo := mongo.NewWorkspaceRepo(mongoDB)
	convRepo := mongo.NewConversationRepo(mongoDB)
	messageRepo := mongo.NewMessageRepo(mongoDB)
	fieldRepo := mongo.NewCustomFieldRepo(mongoDB)

	// ES 未配置时检索接口返回不可用
	var searchRepo es.MessageRepo
	if es.Client != nil {
		searchRepo = es.NewMessageRepo(es.Client)
	}

	var emitter service.EventEmitter = service.NopEmitter{}
	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		p, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		producer = p
		emitter = p
	} else {
		log.Warn("Kafka brokers not configured, domain events are dropped")
	}

	bus := broker.NewRedisBroker(redis.Rdb)

	planSvc := service.NewPlanService(tenantRepo, planConfigRepo, workspaceRepo, convRepo)
	aggregateSvc := service.NewAggregateService(workspaceRepo, convRepo, messageRepo)
	fieldSvc := service.NewCustomFieldService(fieldRepo)
	workspaceSvc := service.NewWorkspaceService(workspaceRepo, convRepo, messageRepo, fieldRepo,
		planSvc, fieldSvc, searchRepo, minio.NewLogoStore(), emitter)
	convSvc := service.NewConversationService(workspaceRepo, convRepo, messageRepo,
		workspaceSvc, planSvc, aggregateSvc, fieldSvc, bus, emitter, cfg.Sync.PageSize)
	upgradeSvc := service.NewUpgradeService(upgradeRepo, workspaceRepo, planSvc, emitter)
	analyticsSvc := service.NewAnalyticsService(redis.Rdb,
		time.Duration(cfg.Analytics.RetentionDays)*24*time.Hour, cfg.Analytics.WindowDays)

	handlers := &api.HandlersGroup{
		WorkspaceHandler:    handler.NewWorkspaceHandler(workspaceSvc, convSvc),
		ConversationHandler: handler.NewConversationHandler(convSvc),
		WidgetHandler:       handler.NewWidgetHandler(workspaceSvc, convSvc, cfg.Widget),
		AnalyticsHandler: handler.NewAnalyticsHandler(analyticsSvc, workspaceSvc,
			redis.NewFixedWindowLimiter(redis.Rdb),
			cfg.Analytics.RateLimit, time.Duration(cfg.Analytics.RateWindow)*time.Second),
		BillingHandler:  handler.NewBillingHandler(planSvc, upgradeSvc, workspaceSvc),
		RealtimeHandler: handler.NewRealtimeHandler(convSvc, bus, cfg.Sync.PageSize),
	}

	router := api.SetupRouter(handlers, api.RouterDeps{
		Tenants:   planSvc,
		PublicURL: cfg.Widget.PublicURL,
		Logstash:  cfg.Logstash,
	})

	cronMgr := cron.NewCronManager(cfg.Sync.RecountSpec, job.NewWorkspaceRecountJob(aggregateSvc))

	var kafkaMgr *kafka.ConsumerManager
	if producer != nil && searchRepo != nil {
		mgr, err := kafka.NewConsumerManager(cfg.Kafka, searchRepo)
		if err != nil {
			return nil, err
		}
		kafkaMgr = mgr
	}

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		CronMgr:      cronMgr,
		KafkaManager: kafkaMgr,
		Producer:     producer,
	}, nil
}
