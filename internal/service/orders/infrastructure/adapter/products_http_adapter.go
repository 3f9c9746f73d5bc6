package adapter

import (
	"context"
	"encoding/json"
	"net/http"

	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/pkg/httpclient"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/orders/domain"
	"ecommerce/internal/service/orders/domain/port"
)

// ProductsHTTPAdapter 实现了 port.ProductsService
type ProductsHTTPAdapter struct {
	client *httpclient.Client
}

func NewProductsHTTPAdapter(client *httpclient.Client) *ProductsHTTPAdapter {
	return &ProductsHTTPAdapter{client: client}
}

type productsRequest struct {
	Products []domain.Product `json:"products"`
}

type productsResponse struct {
	Message  string            `json:"message"`
	Products []json.RawMessage `json:"products"`
}

// ValidateProducts 让商品服务比对订单中的商品；返回不一致的商品时校验失败
func (a *ProductsHTTPAdapter) ValidateProducts(ctx context.Context, order *domain.Order) port.Validation {
	var resp productsResponse
	status, err := a.client.PostJSON(ctx, constants.ProductsService, constants.ProductsValidatePath,
		productsRequest{Products: order.Products}, &resp)
	if err != nil || (status != http.StatusOK && status != http.StatusBadRequest) {
		logger.Ctx(ctx).Warn().Err(err).Int("statusCode", status).Msg("Failure to contact the products service")
		return port.Validation{Message: "Failure to contact the products service"}
	}
	return port.Validation{OK: status == http.StatusOK && len(resp.Products) == 0, Message: resp.Message}
}
