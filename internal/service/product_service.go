package service

import (
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/repository"
)

// ProductService 商品业务服务
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// ListPublic 获取公开商品列表
func (s *ProductService) ListPublic(page, pageSize int) ([]models.Product, int64, error) {
	filter := repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		OnlyActive: true,
	}
	return s.repo.List(filter)
}

// GetPublicByID 获取公开商品详情，下架商品视为不存在
func (s *ProductService) GetPublicByID(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, ErrNotFound
	}
	return product, nil
}

// GetAvailable 获取可加入购物车的商品
func (s *ProductService) GetAvailable(id uint) (*models.Product, error) {
	if id == 0 {
		return nil, ErrInvalidCartItem
	}
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, ErrProductNotAvailable
	}
	return product, nil
}
