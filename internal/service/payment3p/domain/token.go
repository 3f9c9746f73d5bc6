package domain

import (
	"context"
	"errors"
)

var ErrTokenNotFound = errors.New("payment token not found")

// Token 是一次预授权：令牌和仍可扣款的金额
type Token struct {
	PaymentToken string `json:"paymentToken"`
	Amount       int    `json:"amount"`
}

// Repository 定义了预授权表的持久化接口
type Repository interface {
	// Get 不存在时返回 ErrTokenNotFound
	Get(ctx context.Context, paymentToken string) (*Token, error)
	Save(ctx context.Context, t *Token) error
	Delete(ctx context.Context, paymentToken string) error
}
