package application

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"ecommerce/internal/service/payment3p/domain"
)

// ProcessorService 模拟第三方支付：预授权一个金额，之后可以检查、下调、扣款或取消
type ProcessorService struct {
	repo  domain.Repository
	newID func() string
}

func NewProcessorService(repo domain.Repository) *ProcessorService {
	return &ProcessorService{repo: repo, newID: uuid.NewString}
}

// Preauth 为 amount 创建一个预授权令牌。卡号不会被保存
func (s *ProcessorService) Preauth(ctx context.Context, _ int64, amount int) (string, error) {
	token := &domain.Token{PaymentToken: s.newID(), Amount: amount}
	if err := s.repo.Save(ctx, token); err != nil {
		return "", err
	}
	return token.PaymentToken, nil
}

// Check 判断令牌是否存在且预授权金额不少于 amount
func (s *ProcessorService) Check(ctx context.Context, paymentToken string, amount int) (bool, error) {
	token, err := s.lookup(ctx, paymentToken)
	if token == nil || err != nil {
		return false, err
	}
	return token.Amount >= amount, nil
}

// UpdateAmount 只允许把预授权金额调低或保持不变
func (s *ProcessorService) UpdateAmount(ctx context.Context, paymentToken string, amount int) (bool, error) {
	token, err := s.lookup(ctx, paymentToken)
	if token == nil || err != nil {
		return false, err
	}
	if token.Amount < amount {
		return false, nil
	}
	token.Amount = amount
	return true, s.repo.Save(ctx, token)
}

// Process 扣款并删除令牌
func (s *ProcessorService) Process(ctx context.Context, paymentToken string) (bool, error) {
	return s.consume(ctx, paymentToken)
}

// Cancel 取消预授权并删除令牌
func (s *ProcessorService) Cancel(ctx context.Context, paymentToken string) (bool, error) {
	return s.consume(ctx, paymentToken)
}

func (s *ProcessorService) consume(ctx context.Context, paymentToken string) (bool, error) {
	token, err := s.lookup(ctx, paymentToken)
	if token == nil || err != nil {
		return false, err
	}
	return true, s.repo.Delete(ctx, paymentToken)
}

// lookup 在令牌不存在时返回 nil, nil
func (s *ProcessorService) lookup(ctx context.Context, paymentToken string) (*domain.Token, error) {
	token, err := s.repo.Get(ctx, paymentToken)
	if errors.Is(err, domain.ErrTokenNotFound) {
		return nil, nil
	}
	return token, err
}
