package routes

import (
	"log"

	"github.com/MZOG/fixlog/models"
	"github.com/MZOG/fixlog/services"
	"github.com/MZOG/fixlog/storage"
	"github.com/MZOG/fixlog/utils"

	"github.com/kataras/iris/v12"
)

// CreateFeedback stores a visitor's message and fires the thank-you and
// admin-copy emails. Email failures are logged, never fatal.
func CreateFeedback(ctx iris.Context) {
	var input CreateFeedbackInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	feedback := models.Feedback{
		FullName: input.FullName,
		Email:    input.Email,
		Message:  input.Message,
	}
	if err := storage.DB.Create(&feedback).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if err := services.Mail.SendFeedbackThanks(input.Email, "Dziękujemy za opinię"); err != nil {
		log.Printf("feedback: thanks email to %s failed: %v", input.Email, err)
	}
	if err := services.Mail.SendFeedbackToAdmin("Nowa opinia: "+input.FullName, input.Message); err != nil {
		log.Printf("feedback: admin copy failed: %v", err)
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"data": &feedback})
}

type CreateFeedbackInput struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=256"`
	Message  string `json:"message" validate:"required,max=5000"`
}
