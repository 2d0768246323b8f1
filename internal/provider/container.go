package provider

import (
	"github.com/commission-next/internal/authz"
	"github.com/commission-next/internal/cache"
	"github.com/commission-next/internal/config"
	"github.com/commission-next/internal/engine"
	"github.com/commission-next/internal/logger"
	"github.com/commission-next/internal/models"
	"github.com/commission-next/internal/queue"
	"github.com/commission-next/internal/repository"
	"github.com/commission-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config           *config.Config
	QueueClient      *queue.Client
	StrategyRegistry *engine.Registry

	// Repositories
	AdminRepo         repository.AdminRepository
	SalesRepRepo      repository.SalesRepRepository
	DealRepo          repository.DealRepository
	RuleRepo          repository.RuleRepository
	CommissionRepo    repository.CommissionRepository
	ApprovalEventRepo repository.ApprovalEventRepository
	DashboardRepo     repository.DashboardRepository

	// Services
	AuthzService      *authz.Service
	AuthService       *service.AuthService
	CaptchaService    *service.CaptchaService
	SalesRepService   *service.SalesRepService
	DealService       *service.DealService
	RuleService       *service.RuleService
	CommissionService *service.CommissionService
	ApprovalService   *service.ApprovalService
	DashboardService  *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:           cfg,
		QueueClient:      queueClient,
		StrategyRegistry: engine.NewRegistry(),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.SalesRepRepo = repository.NewSalesRepRepository(db)
	c.DealRepo = repository.NewDealRepository(db)
	c.RuleRepo = repository.NewRuleRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.ApprovalEventRepo = repository.NewApprovalEventRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.SalesRepService = service.NewSalesRepService(c.SalesRepRepo)
	c.RuleService = service.NewRuleService(c.StrategyRegistry, c.RuleRepo)
	c.CommissionService = service.NewCommissionService(models.DB, c.Config, c.StrategyRegistry, c.DealRepo, c.SalesRepRepo, c.RuleRepo, c.CommissionRepo, c.ApprovalEventRepo)
	c.ApprovalService = service.NewApprovalService(models.DB, c.Config, c.CommissionRepo, c.ApprovalEventRepo)
	c.DealService = service.NewDealService(c.DealRepo, c.SalesRepRepo, c.CommissionService, c.QueueClient)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
}
