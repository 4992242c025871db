package models

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FirstName             string     `json:"firstName"`
	LastName              string     `json:"lastName"`
	Email                 string     `json:"email" gorm:"uniqueIndex"`
	Password              string     `json:"-"`
	StripeCustomerID      *string    `json:"stripeCustomerID" gorm:"column:stripe_customer_id"`
	StripeSubscriptionID  *string    `json:"stripeSubscriptionID" gorm:"column:stripe_subscription_id"`
	HasActiveSubscription bool       `json:"hasActiveSubscription" gorm:"default:false"`
	Buildings             []Building `json:"buildings,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
}
