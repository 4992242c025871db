package routes

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"github.com/MZOG/fixlog/models"
	"github.com/MZOG/fixlog/services"
	"github.com/MZOG/fixlog/storage"
	"github.com/MZOG/fixlog/utils"

	"github.com/kataras/iris/v12"
	stripe "github.com/stripe/stripe-go/v76"
)

// CreateCheckoutSession starts the hosted checkout flow for the caller and
// returns the redirect URL.
func CreateCheckoutSession(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	url, err := services.Billing.CreateCheckoutURL(&user)
	if err != nil {
		log.Printf("billing: checkout session for user %d failed: %v", userID, err)
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"url": url})
}

// SyncSubscription manually reconciles the caller's subscription quantity
// with their building count, typically after adding or removing a building.
func SyncSubscription(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	quantity, err := services.Billing.SyncQuantity(userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoSubscription):
			utils.CreateError(iris.StatusBadRequest, "No subscription",
				"Complete checkout before syncing the subscription.", ctx)
		case errors.Is(err, services.ErrPriceNotConfigured):
			utils.CreateError(iris.StatusBadRequest, "Configuration error",
				"Price not found in subscription.", ctx)
		default:
			log.Printf("billing: sync for user %d failed: %v", userID, err)
			utils.CreateInternalServerError(ctx)
		}
		return
	}

	ctx.JSON(iris.Map{"success": true, "quantity": quantity})
}

// StripeWebhook processes payment processor events. The signature over the
// raw body is verified before anything is parsed. Handled events that fail
// mid-processing return 500 so the processor redelivers; everything else is
// acknowledged with 200.
func StripeWebhook(ctx iris.Context) {
	body, err := ctx.GetBody()
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad request", "Unreadable body.", ctx)
		return
	}

	event, err := services.Billing.VerifyWebhook(body, ctx.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Printf("billing: webhook signature verification failed: %v", err)
		utils.CreateError(iris.StatusBadRequest, "Signature error", "Invalid signature.", ctx)
		return
	}

	if string(event.Type) == "checkout.session.completed" {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			log.Printf("billing: webhook payload unmarshal failed: %v", err)
			ctx.StopWithJSON(iris.StatusInternalServerError, iris.Map{"error": "processing failed"})
			return
		}

		userID, ok := sessionUserID(&session)
		if !ok {
			// A session without our metadata is not ours to process.
			log.Printf("billing: checkout session %s has no userId metadata", session.ID)
			ctx.JSON(iris.Map{"received": true})
			return
		}

		if session.Subscription == nil || session.Subscription.ID == "" {
			log.Printf("billing: checkout session %s has no subscription", session.ID)
			ctx.StopWithJSON(iris.StatusInternalServerError, iris.Map{"error": "processing failed"})
			return
		}

		if err := services.Billing.ActivateSubscription(userID, session.Subscription.ID); err != nil {
			log.Printf("billing: activation for user %d failed: %v", userID, err)
			ctx.StopWithJSON(iris.StatusInternalServerError, iris.Map{"error": "processing failed"})
			return
		}
	}

	ctx.JSON(iris.Map{"received": true})
}

func sessionUserID(session *stripe.CheckoutSession) (uint, bool) {
	raw, ok := session.Metadata["userId"]
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
