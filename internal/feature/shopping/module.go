package shopping

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"pickfast/internal/domain"
	"pickfast/internal/service"
	"pickfast/internal/transport/http/ez"
)

// Module serves the stores and products of the caller's group.
type Module struct {
	stores   *service.StoreService
	products *service.ProductService
}

func New(stores *service.StoreService, products *service.ProductService) *Module {
	return &Module{stores: stores, products: products}
}

func (*Module) Priority() int { return 30 }

type storeIn struct {
	Name string `json:"name" binding:"required,max=100"`
}

type productIn struct {
	Title    string `json:"title"    binding:"required,max=40"`
	Priority string `json:"priority"` // L|M|H or Low|Medium|High
	StoreID  *uint  `json:"storeId"`
}

type productOut struct {
	domain.Product
	PriorityLabel string `json:"priorityLabel"`
}

func withLabel(p *domain.Product) productOut {
	return productOut{Product: *p, PriorityLabel: p.Priority.Label()}
}

type deleted struct {
	ID uint `json:"id"`
}

func (m *Module) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[struct{}, []domain.Store]{
		Method: http.MethodGet,
		Path:   "/stores",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Store, error) {
			stores, err := m.stores.List(c.Request.Context(), ez.Actor(c))
			if stores == nil && err == nil {
				stores = []domain.Store{}
			}
			return stores, err
		},
	})

	ez.RegisterAction(e, ez.Action[storeIn, *domain.Store]{
		Method: http.MethodPost,
		Path:   "/stores",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *storeIn) (*domain.Store, error) {
			return m.stores.Create(c.Request.Context(), ez.Actor(c), in.Name)
		},
	})

	ez.RegisterAction(e, ez.Action[storeIn, *domain.Store]{
		Method: http.MethodPut,
		Path:   "/stores/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *storeIn) (*domain.Store, error) {
			id, err := ez.UintParam(c, "id")
			if err != nil {
				return nil, err
			}
			return m.stores.Rename(c.Request.Context(), ez.Actor(c), id, in.Name)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, deleted]{
		Method: http.MethodDelete,
		Path:   "/stores/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (deleted, error) {
			id, err := ez.UintParam(c, "id")
			if err != nil {
				return deleted{}, err
			}
			return deleted{ID: id}, m.stores.Delete(c.Request.Context(), ez.Actor(c), id)
		},
	})

	ez.RegisterAction(e, ez.Action[ez.Paging, ez.List[productOut]]{
		Method: http.MethodGet,
		Path:   "/products",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *ez.Paging) (ez.List[productOut], error) {
			offset, limit := in.Clamp(200)
			products, total, err := m.products.List(c.Request.Context(), ez.Actor(c), offset, limit)
			if err != nil {
				return ez.List[productOut]{}, err
			}
			out := make([]productOut, 0, len(products))
			for i := range products {
				out = append(out, withLabel(&products[i]))
			}
			return ez.NewList(out, total), nil
		},
	})

	ez.RegisterAction(e, ez.Action[productIn, productOut]{
		Method: http.MethodPost,
		Path:   "/products",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *productIn) (productOut, error) {
			p, err := m.products.Create(c.Request.Context(), ez.Actor(c), service.NewProduct{
				Title:    in.Title,
				Priority: in.Priority,
				StoreID:  in.StoreID,
			})
			if err != nil {
				return productOut{}, err
			}
			return withLabel(p), nil
		},
	})

	m.mountPurchase(e, http.MethodPost, m.products.RecordPurchase)
	m.mountPurchase(e, http.MethodDelete, m.products.ClearPurchase)

	ez.RegisterAction(e, ez.Action[struct{}, deleted]{
		Method: http.MethodDelete,
		Path:   "/products/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (deleted, error) {
			id, err := ez.UintParam(c, "id")
			if err != nil {
				return deleted{}, err
			}
			return deleted{ID: id}, m.products.Delete(c.Request.Context(), ez.Actor(c), id)
		},
	})
}

type purchaseFunc func(ctx context.Context, actor domain.Actor, id uint) (*domain.Product, error)

func (m *Module) mountPurchase(e ez.EZ, method string, fn purchaseFunc) {
	ez.RegisterAction(e, ez.Action[struct{}, productOut]{
		Method: method,
		Path:   "/products/:id/purchase",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (productOut, error) {
			id, err := ez.UintParam(c, "id")
			if err != nil {
				return productOut{}, err
			}
			p, err := fn(c.Request.Context(), ez.Actor(c), id)
			if err != nil {
				return productOut{}, err
			}
			return withLabel(p), nil
		},
	})
}
