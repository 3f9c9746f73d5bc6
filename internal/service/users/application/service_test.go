package application

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"ecommerce/internal/pkg/eventbus"
	"ecommerce/internal/service/users/domain"
)

func trigger(source string) domain.SignUpTrigger {
	var t domain.SignUpTrigger
	t.TriggerSource = source
	t.UserName = "u-1"
	t.Request.UserAttributes = map[string]string{"email": "john@example.com"}
	return t
}

func TestOnSignUp(t *testing.T) {
	for _, source := range []string{domain.TriggerSignUp, domain.TriggerAdminCreateUser} {
		t.Run(source, func(t *testing.T) {
			bus := eventbus.NewMemoryBus()
			svc := NewSignUpService(bus, "bus", otel.Tracer("test"))
			published, err := svc.OnSignUp(context.Background(), trigger(source))
			require.NoError(t, err)
			assert.True(t, published)

			entries := bus.Published()
			require.Len(t, entries, 1)
			assert.Equal(t, "ecommerce.users", entries[0].Source)
			assert.Equal(t, "UserCreated", entries[0].DetailType)
			assert.Equal(t, []string{"u-1"}, entries[0].Resources)
			var detail domain.UserCreated
			require.NoError(t, json.Unmarshal([]byte(entries[0].Detail), &detail))
			assert.Equal(t, domain.UserCreated{UserID: "u-1", Email: "john@example.com"}, detail)
		})
	}
}

func TestOnSignUp_OtherTriggerIsIgnored(t *testing.T) {
	bus := eventbus.NewMemoryBus()
	svc := NewSignUpService(bus, "bus", otel.Tracer("test"))
	published, err := svc.OnSignUp(context.Background(), trigger("PostConfirmation_ConfirmForgotPassword"))
	require.NoError(t, err)
	assert.False(t, published)
	assert.Empty(t, bus.Published())
}

func TestOnSignUp_MissingEmail(t *testing.T) {
	svc := NewSignUpService(eventbus.NewMemoryBus(), "bus", otel.Tracer("test"))
	tr := trigger(domain.TriggerSignUp)
	tr.Request.UserAttributes = nil
	_, err := svc.OnSignUp(context.Background(), tr)
	assert.ErrorIs(t, err, domain.ErrInvalidTrigger)
}
