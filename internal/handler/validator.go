package handler

import (
	"regexp"
	"strings"
	"sync"

	"bookswap/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	accountSuffixPattern = regexp.MustCompile(`^\d{5}$`)
	registerOnce         sync.Once
)

// registerValidators 在 gin 默认校验器上注册业务校验标签
func registerValidators(log *logrus.Logger) {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("account_suffix", validAccountSuffix); err != nil {
			log.WithError(err).Error("注册 account_suffix 校验失败")
		}
		if err := v.RegisterValidation("provider", validProvider); err != nil {
			log.WithError(err).Error("注册 provider 校验失败")
		}
	})
}

func validAccountSuffix(fl validator.FieldLevel) bool {
	return accountSuffixPattern.MatchString(fl.Field().String())
}

func validProvider(fl validator.FieldLevel) bool {
	switch strings.ToLower(strings.TrimSpace(fl.Field().String())) {
	case model.ProviderTelebirr, model.ProviderAbyssinia:
		return true
	}
	return false
}
