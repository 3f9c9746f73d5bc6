package domain

import "errors"

var (
	ErrDeliveryNotFound  = errors.New("delivery not found")
	ErrInvalidTransition = errors.New("invalid delivery status transition")
)

// Status 定义了配送任务的状态
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Finished 判断配送是否已经结束；结束的记录被删除时不再发出事件
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Address 是收货地址
type Address struct {
	Name          string `json:"name"`
	CompanyName   string `json:"companyName,omitempty"`
	StreetAddress string `json:"streetAddress"`
	PostCode      string `json:"postCode,omitempty"`
	City          string `json:"city"`
	State         string `json:"state,omitempty"`
	Country       string `json:"country"`
	PhoneNumber   string `json:"phoneNumber"`
}

// Delivery 是一个订单的配送任务
type Delivery struct {
	OrderID string  `json:"orderId"`
	Status  Status  `json:"status"`
	Address Address `json:"address"`
	// IsNew 只在 NEW 状态下为 "true"，用于待配送列表的稀疏索引
	IsNew string `json:"isNew,omitempty"`
}

// NewDelivery 创建一个 NEW 状态的配送任务
func NewDelivery(orderID string, address Address) *Delivery {
	return &Delivery{OrderID: orderID, Status: StatusNew, Address: address, IsNew: "true"}
}

// Transition 按 NEW → IN_PROGRESS → COMPLETED/FAILED 推进状态
func (d *Delivery) Transition(to Status) error {
	switch {
	case d.Status == StatusNew && to == StatusInProgress,
		d.Status == StatusInProgress && to.Finished():
		d.Status = to
		d.IsNew = ""
		return nil
	}
	return ErrInvalidTransition
}
