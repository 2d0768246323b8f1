package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 系统预置角色矩阵
// 审批权限按职责拆分：sales_ops 管规则与基础数据，reviewer 审批，finance 发放。
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
				// 改自身密码属于自助操作，随基础角色放开
				{Object: "/admin/password", Action: "PUT"},
			},
			Immutable: true,
		},
		{
			Role:     "sales_ops",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/rules", Action: "*"},
				{Object: "/admin/rules/:id", Action: "*"},
				{Object: "/admin/rules/:id/activate", Action: "POST"},
				{Object: "/admin/rules/validate", Action: "POST"},
				{Object: "/admin/sales-reps", Action: "*"},
				{Object: "/admin/sales-reps/:id", Action: "*"},
				{Object: "/admin/deals", Action: "*"},
				{Object: "/admin/deals/:id", Action: "GET"},
				{Object: "/admin/commissions/calculate", Action: "POST"},
				{Object: "/admin/commissions/preview", Action: "POST"},
			},
			Immutable: true,
		},
		{
			Role:     "reviewer",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/commissions/:id/review", Action: "POST"},
				{Object: "/admin/commissions/:id/approve", Action: "POST"},
				{Object: "/admin/commissions/:id/reject", Action: "POST"},
				{Object: "/admin/commissions/:id/adjust-approve", Action: "POST"},
				{Object: "/admin/commissions/bulk-approve", Action: "POST"},
				{Object: "/admin/commissions/bulk-reject", Action: "POST"},
			},
			Immutable: true,
		},
		{
			Role:     "finance",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/commissions/:id/pay", Action: "POST"},
				{Object: "/admin/dashboard", Action: "GET"},
			},
			Immutable: true,
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略（幂等，可在每次启动时执行）
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
