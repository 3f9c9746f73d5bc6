package domain

import "errors"

var ErrInvalidTrigger = errors.New("invalid sign-up trigger")

// 只有这两种触发来源会创建用户
const (
	TriggerSignUp          = "PreSignUp_SignUp"
	TriggerAdminCreateUser = "PreSignUp_AdminCreateUser"
)

// SignUpTrigger 是身份提供方的 pre-sign-up 回调中关心的字段
type SignUpTrigger struct {
	TriggerSource string `json:"triggerSource"`
	UserName      string `json:"userName"`
	Request       struct {
		UserAttributes map[string]string `json:"userAttributes"`
	} `json:"request"`
}

// CreatesUser 判断该触发来源是否代表新用户注册
func (t SignUpTrigger) CreatesUser() bool {
	return t.TriggerSource == TriggerSignUp || t.TriggerSource == TriggerAdminCreateUser
}

// SignUpResponse 告诉身份提供方不要自动确认用户
type SignUpResponse struct {
	AutoConfirmUser bool `json:"autoConfirmUser"`
	AutoVerifyPhone bool `json:"autoVerifyPhone"`
	AutoVerifyEmail bool `json:"autoVerifyEmail"`
}

// UserCreated 是 UserCreated 事件的 detail
type UserCreated struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
