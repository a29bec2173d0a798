package resource

import (
	"context"
	"net/http"
	"net/url"

	"github.com/utafrali/ecommerce-admin/internal/auth"
	"github.com/utafrali/ecommerce-admin/internal/domain"
	"github.com/utafrali/ecommerce-admin/pkg/pagination"
)

// BannersConfig is the banner management list.
func BannersConfig() Config {
	params := pagination.DefaultParams()
	params.SortBy = "order"
	params.SortOrder = pagination.SortAsc
	return Config{
		Name:          "banners",
		Endpoint:      "/banners",
		Key:           "banners",
		Singular:      "banner",
		DefaultParams: params,
	}
}

// ActiveBannersConfig is the storefront hero slider. It needs no token.
func ActiveBannersConfig() Config {
	cfg := BannersConfig()
	cfg.Name = "active banners"
	cfg.Endpoint = "/banners/active"
	return cfg
}

// BannerStore manages hero-slider banners.
type BannerStore struct {
	*Store[domain.Banner]
}

// NewBannerStore creates the store behind the banner admin page.
func NewBannerStore(deps Deps) *BannerStore {
	return &BannerStore{Store: NewStore[domain.Banner](BannersConfig(), deps)}
}

// NewActiveBannerStore creates the public storefront banner store. The
// authorizer in deps is replaced: storefront reads never carry a token.
func NewActiveBannerStore(deps Deps) *BannerStore {
	deps.Auth = auth.Public{}
	return &BannerStore{Store: NewStore[domain.Banner](ActiveBannersConfig(), deps)}
}

type bannerActivation struct {
	IsActive bool `json:"isActive"`
}

// SetActive shows or hides a banner on the storefront.
func (s *BannerStore) SetActive(ctx context.Context, id string, active bool) error {
	success := "Banner deactivated"
	if active {
		success = "Banner activated"
	}
	return s.Mutate(ctx, Mutation[domain.Banner]{
		Method:          http.MethodPatch,
		Endpoint:        "/banners/" + url.PathEscape(id),
		Body:            bannerActivation{IsActive: active},
		ID:              id,
		UseServerRecord: true,
		Apply:           PatchByID(id, func(b *domain.Banner) { b.IsActive = active }),
		Success:         success,
		Failure:         "Failed to update banner",
	})
}

// Delete removes a banner.
func (s *BannerStore) Delete(ctx context.Context, id string) error {
	return s.Mutate(ctx, Mutation[domain.Banner]{
		Method:   http.MethodDelete,
		Endpoint: "/banners/" + url.PathEscape(id),
		ID:       id,
		Apply:    RemoveByID[domain.Banner](id),
		Success:  "Banner deleted",
		Failure:  "Failed to delete banner",
	})
}
