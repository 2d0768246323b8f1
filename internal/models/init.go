package models

import (
	"strings"

	"github.com/commission-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const (
	bootstrapAdminUsername = "admin"
	bootstrapAdminPassword = "admin123"
)

// InitDefaultAdmin 初始化引导管理员账号
// 已有管理员时只校正默认 admin 的超管位；全新库则按入参（或默认值）建号。
func InitDefaultAdmin(username, password string) error {
	var count int64
	DB.Model(&Admin{}).Count(&count)

	if count > 0 {
		err := DB.Model(&Admin{}).
			Where("username = ?", bootstrapAdminUsername).
			Update("is_super", true).Error
		if err != nil {
			logger.Warnw("ensure_default_admin_super_failed", "error", err)
		}
		return nil
	}

	if username == "" {
		username = bootstrapAdminUsername
	}
	if password == "" {
		password = bootstrapAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := Admin{
		Username:     username,
		PasswordHash: string(hash),
		IsSuper:      strings.EqualFold(strings.TrimSpace(username), bootstrapAdminUsername),
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	if password == bootstrapAdminPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username)
		logger.Warnw("default_admin_password_change_required", "username", username)
	} else {
		logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
	}
	return nil
}
