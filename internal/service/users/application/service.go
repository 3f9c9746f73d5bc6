package application

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/pkg/eventbus"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/users/domain"
)

// SignUpService 把注册回调转换为 UserCreated 事件
type SignUpService struct {
	publisher eventbus.Publisher
	busName   string
	tracer    trace.Tracer
}

func NewSignUpService(publisher eventbus.Publisher, busName string, tracer trace.Tracer) *SignUpService {
	return &SignUpService{publisher: publisher, busName: busName, tracer: tracer}
}

// OnSignUp 在新用户注册时发布 UserCreated，其他触发来源只记录日志。
// 返回是否发布了事件
func (s *SignUpService) OnSignUp(ctx context.Context, trigger domain.SignUpTrigger) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "users.OnSignUp", trace.WithAttributes(
		attribute.String("trigger.source", trigger.TriggerSource),
	))
	defer span.End()

	if !trigger.CreatesUser() {
		logger.Ctx(ctx).Warn().Str("triggerSource", trigger.TriggerSource).Msg("invalid triggerSource")
		return false, nil
	}
	email := trigger.Request.UserAttributes["email"]
	if trigger.UserName == "" || email == "" {
		return false, fmt.Errorf("%w: missing userName or email", domain.ErrInvalidTrigger)
	}

	entry, err := eventbus.NewEntry(constants.SourceUsers, "UserCreated", []string{trigger.UserName},
		domain.UserCreated{UserID: trigger.UserName, Email: email}, s.busName)
	if err != nil {
		return false, err
	}
	if err := s.publisher.PutEvents(ctx, []eventbus.Entry{entry}); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("publish UserCreated for %s: %w", trigger.UserName, err)
	}
	logger.Ctx(ctx).Info().Str("userId", trigger.UserName).Msg("✅ UserCreated published")
	return true, nil
}
