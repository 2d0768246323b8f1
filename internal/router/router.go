package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/commission-next/internal/authz"
	"github.com/commission-next/internal/cache"
	"github.com/commission-next/internal/config"
	adminhandlers "github.com/commission-next/internal/http/handlers/admin"
	publichandlers "github.com/commission-next/internal/http/handlers/public"
	"github.com/commission-next/internal/http/response"
	"github.com/commission-next/internal/logger"
	"github.com/commission-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "cm"
	}
	redisClient := cache.Client()
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}
	dealIngestRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:deal_ingest", redisPrefix),
		WindowSeconds: cfg.Security.IngestRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.IngestRateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 外部系统对接接口
		apiV1.POST("/deals", RateLimitMiddleware(redisClient, dealIngestRule, KeyByIPAndJSONField("deal_no")), publicHandler.CreateDeal)
		apiV1.POST("/commissions/preview", publicHandler.PreviewCommission)
		apiV1.GET("/reps/:id/commissions", publicHandler.ListRepCommissions)

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.GET("/captcha/image", adminHandler.GetAdminCaptcha)
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(c.AuthService), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/profile", adminHandler.GetAdminProfile)
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 仪表盘
				authorized.GET("/dashboard", adminHandler.GetDashboard)

				// 销售代表管理
				authorized.GET("/sales-reps", adminHandler.ListSalesReps)
				authorized.POST("/sales-reps", adminHandler.CreateSalesRep)
				authorized.GET("/sales-reps/:id", adminHandler.GetSalesRep)
				authorized.PUT("/sales-reps/:id", adminHandler.UpdateSalesRep)

				// 成交单管理
				authorized.GET("/deals", adminHandler.ListDeals)
				authorized.POST("/deals", adminHandler.CreateDeal)
				authorized.GET("/deals/:id", adminHandler.GetDeal)

				// 佣金规则管理
				authorized.GET("/rules", adminHandler.ListRules)
				authorized.POST("/rules", adminHandler.CreateRule)
				authorized.GET("/rules/types", adminHandler.ListRuleTypes)
				authorized.POST("/rules/validate", adminHandler.ValidateRule)
				authorized.GET("/rules/:id", adminHandler.GetRule)
				authorized.PUT("/rules/:id", adminHandler.UpdateRule)
				authorized.DELETE("/rules/:id", adminHandler.DeleteRule)
				authorized.POST("/rules/:id/activate", adminHandler.SetRuleActive)

				// 佣金记录与审批
				authorized.GET("/commissions", adminHandler.ListCommissions)
				authorized.POST("/commissions/calculate", adminHandler.CalculateCommission)
				authorized.POST("/commissions/preview", adminHandler.PreviewCommission)
				authorized.POST("/commissions/bulk-approve", adminHandler.BulkApproveCommissions)
				authorized.POST("/commissions/bulk-reject", adminHandler.BulkRejectCommissions)
				authorized.GET("/commissions/:id", adminHandler.GetCommission)
				authorized.GET("/commissions/:id/events", adminHandler.ListCommissionEvents)
				authorized.POST("/commissions/:id/review", adminHandler.ReviewCommission)
				authorized.POST("/commissions/:id/approve", adminHandler.ApproveCommission)
				authorized.POST("/commissions/:id/reject", adminHandler.RejectCommission)
				authorized.POST("/commissions/:id/pay", adminHandler.PayCommission)
				authorized.POST("/commissions/:id/adjust-approve", adminHandler.AdjustApproveCommission)

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" || item.Path == "/api/v1/admin/captcha/image" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
