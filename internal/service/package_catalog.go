package service

import (
	"context"
	"fmt"
	"time"

	"bookswap/internal/model"
	"bookswap/internal/repository"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

const activePackagesKey = "packages:active"

// PackageCatalog 充值套餐读缓存，套餐变动不频繁
type PackageCatalog struct {
	repo  *repository.PaymentRepository
	cache *gocache.Cache
}

func NewPackageCatalog(db *gorm.DB, ttl time.Duration) *PackageCatalog {
	return &PackageCatalog{
		repo:  repository.NewPaymentRepository(db),
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *PackageCatalog) Get(ctx context.Context, id int64) (*model.CoinPackage, error) {
	key := fmt.Sprintf("package:%d", id)
	if v, ok := c.cache.Get(key); ok {
		return v.(*model.CoinPackage), nil
	}

	pkg, err := c.repo.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, pkg)
	return pkg, nil
}

func (c *PackageCatalog) List(ctx context.Context) ([]*model.CoinPackage, error) {
	if v, ok := c.cache.Get(activePackagesKey); ok {
		return v.([]*model.CoinPackage), nil
	}

	pkgs, err := c.repo.ListActivePackages(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(activePackagesKey, pkgs)
	return pkgs, nil
}

// Invalidate 套餐被修改后清空缓存
func (c *PackageCatalog) Invalidate() {
	c.cache.Flush()
}
