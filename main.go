package main

import (
	"os"

	"github.com/MZOG/fixlog/routes"
	"github.com/MZOG/fixlog/services"
	"github.com/MZOG/fixlog/storage"
	"github.com/MZOG/fixlog/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	godotenv.Load()
	storage.InitializeDB()
	storage.InitializeRedis()
	services.InitializeMail()
	services.InitializeBilling()
	services.InitializePolicy()

	app := iris.New()
	app.Validator = validator.New()

	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	user := app.Party("/api/users")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)
		user.Get("/me", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetMe)
	}

	building := app.Party("/api/buildings", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		building.Post("/", routes.CreateBuilding)
		building.Get("/", routes.ListBuildings)
		building.Get("/{publicID}", routes.GetBuilding)
		building.Patch("/{publicID}", routes.UpdateBuilding)
		building.Delete("/{id:uint}", routes.DeleteBuilding)
	}

	alert := app.Party("/api/alerts")
	{
		// Anonymous intake behind the QR code
		alert.Get("/building/{publicID}", routes.GetIntakeBuilding)
		alert.Post("/new/{publicID}", routes.SubmitAlert)

		// Owner triage
		alert.Get("/", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.ListAlerts)
		alert.Patch("/{id:uint}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.UpdateAlertStatus)
		alert.Delete("/{id:uint}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.DeleteAlert)
	}

	billing := app.Party("/api/billing")
	{
		billing.Post("/checkout", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.CreateCheckoutSession)
		billing.Post("/sync", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.SyncSubscription)
		billing.Post("/webhook", routes.StripeWebhook)
	}

	app.Post("/api/feedback", routes.CreateFeedback)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	app.Listen(":" + port)
}
