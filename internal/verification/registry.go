package verification

import (
	"bookswap/internal/config"
	"bookswap/internal/model"

	"github.com/sirupsen/logrus"
)

// Registry 按渠道名查找 Verifier，mock 与真实实现在启动时一次性选定
type Registry struct {
	verifiers map[string]Verifier
	mock      bool
}

func NewRegistry(cfg config.VerificationConfig, log *logrus.Logger) *Registry {
	if cfg.Mock {
		log.WithField("component", "Verification").Warn("支付核验运行在 mock 模式")
		r := NewRegistryWith(
			NewMockVerifier(model.ProviderTelebirr, ""),
			NewMockVerifier(model.ProviderAbyssinia, cfg.Abyssinia.DefaultSuffix),
		)
		r.mock = true
		return r
	}
	return NewRegistryWith(
		NewTelebirrVerifier(cfg.Telebirr, cfg.UserAgent, log),
		NewAbyssiniaVerifier(cfg.Abyssinia, cfg.UserAgent, log),
	)
}

func NewRegistryWith(verifiers ...Verifier) *Registry {
	r := &Registry{verifiers: make(map[string]Verifier, len(verifiers))}
	for _, v := range verifiers {
		r.verifiers[v.Provider()] = v
	}
	return r
}

func (r *Registry) Get(provider string) (Verifier, bool) {
	v, ok := r.verifiers[provider]
	return v, ok
}

func (r *Registry) Mock() bool {
	return r.mock
}
