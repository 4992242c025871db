package services

import (
	"errors"
	"fmt"
	"os"

	"github.com/MZOG/fixlog/models"
	"github.com/MZOG/fixlog/storage"

	stripe "github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/subscriptionitem"
	"github.com/stripe/stripe-go/v76/webhook"
)

var (
	// ErrNoSubscription means the user never completed a checkout.
	ErrNoSubscription = errors.New("user has no subscription")
	// ErrPriceNotConfigured means the subscription exists but carries no item
	// for the product price this deployment is configured with.
	ErrPriceNotConfigured = errors.New("subscription has no item for the configured price")
)

// SubscriptionItem is the slice of a Stripe subscription line item the
// reconciler cares about.
type SubscriptionItem struct {
	ID      string
	PriceID string
}

// PaymentGateway is the thin surface of the payment processor the billing
// service touches. Tests substitute a fake; production uses Stripe.
type PaymentGateway interface {
	CreateCustomer(email string) (string, error)
	CreateCheckoutSession(customerID, priceID, userID, successURL, cancelURL string) (string, error)
	SubscriptionItems(subscriptionID string) ([]SubscriptionItem, error)
	UpdateItemQuantity(itemID string, quantity int64) error
}

// BillingService keeps the Stripe subscription quantity equal to the user's
// building count and owns the checkout flow.
type BillingService struct {
	Gateway       PaymentGateway
	PriceID       string
	WebhookSecret string
	BaseURL       string
}

// Billing is the process-wide billing service, replaced in tests.
var Billing *BillingService

func InitializeBilling() {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	Billing = &BillingService{
		Gateway:       &stripeGateway{},
		PriceID:       os.Getenv("STRIPE_PRICE_ID"),
		WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		BaseURL:       os.Getenv("APP_BASE_URL"),
	}
}

// VerifyWebhook checks the signature over the raw body before anything is
// parsed or processed.
func (s *BillingService) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, s.WebhookSecret)
}

// CreateCheckoutURL returns the hosted checkout URL for the user, creating
// and persisting a Stripe customer on first use. The session starts with
// quantity 1; the webhook reconciles it to the real building count.
func (s *BillingService) CreateCheckoutURL(user *models.User) (string, error) {
	customerID := ""
	if user.StripeCustomerID != nil {
		customerID = *user.StripeCustomerID
	}
	if customerID == "" {
		id, err := s.Gateway.CreateCustomer(user.Email)
		if err != nil {
			return "", err
		}
		customerID = id
		if err := storage.DB.Model(user).Update("stripe_customer_id", customerID).Error; err != nil {
			return "", err
		}
	}

	userID := fmt.Sprintf("%d", user.ID)
	return s.Gateway.CreateCheckoutSession(
		customerID,
		s.PriceID,
		userID,
		s.BaseURL+"/dashboard?success=1",
		s.BaseURL+"/dashboard?canceled=1",
	)
}

// SyncQuantity reconciles the subscription item quantity with the user's
// current building count. Setting an unchanged quantity again is a no-op at
// Stripe, so repeated calls are safe.
func (s *BillingService) SyncQuantity(userID uint) (int64, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return 0, err
	}
	if user.StripeSubscriptionID == nil || *user.StripeSubscriptionID == "" {
		return 0, ErrNoSubscription
	}
	return s.reconcile(userID, *user.StripeSubscriptionID)
}

// ActivateSubscription handles a completed checkout: reconcile the quantity,
// then persist the subscription id and the active flag on the profile.
// Stripe delivers webhooks at least once; every write here is idempotent, so
// a duplicate delivery has no extra effect and no dedup bookkeeping is kept.
func (s *BillingService) ActivateSubscription(userID uint, subscriptionID string) error {
	if _, err := s.reconcile(userID, subscriptionID); err != nil {
		return err
	}

	return storage.DB.Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"has_active_subscription": true,
			"stripe_subscription_id":  subscriptionID,
		}).Error
}

func (s *BillingService) reconcile(userID uint, subscriptionID string) (int64, error) {
	quantity, err := storage.CountOwnedBuildings(userID)
	if err != nil {
		return 0, err
	}

	items, err := s.Gateway.SubscriptionItems(subscriptionID)
	if err != nil {
		return 0, err
	}

	itemID := ""
	for _, item := range items {
		if item.PriceID == s.PriceID {
			itemID = item.ID
			break
		}
	}
	if itemID == "" {
		return 0, ErrPriceNotConfigured
	}

	if err := s.Gateway.UpdateItemQuantity(itemID, quantity); err != nil {
		return 0, err
	}
	return quantity, nil
}

// stripeGateway is the production PaymentGateway backed by the Stripe SDK.
type stripeGateway struct{}

func (g *stripeGateway) CreateCustomer(email string) (string, error) {
	c, err := customer.New(&stripe.CustomerParams{
		Email: stripe.String(email),
	})
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (g *stripeGateway) CreateCheckoutSession(customerID, priceID, userID, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.AddMetadata("userId", userID)

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (g *stripeGateway) SubscriptionItems(subscriptionID string) ([]SubscriptionItem, error) {
	params := &stripe.SubscriptionParams{}
	params.AddExpand("items")

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, err
	}

	if sub.Items == nil {
		return nil, nil
	}

	items := make([]SubscriptionItem, 0, len(sub.Items.Data))
	for _, item := range sub.Items.Data {
		priceID := ""
		if item.Price != nil {
			priceID = item.Price.ID
		}
		items = append(items, SubscriptionItem{ID: item.ID, PriceID: priceID})
	}
	return items, nil
}

func (g *stripeGateway) UpdateItemQuantity(itemID string, quantity int64) error {
	_, err := subscriptionitem.Update(itemID, &stripe.SubscriptionItemParams{
		Quantity: stripe.Int64(quantity),
	})
	return err
}
