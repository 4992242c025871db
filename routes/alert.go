package routes

import (
	"log"

	"github.com/MZOG/fixlog/models"
	"github.com/MZOG/fixlog/services"
	"github.com/MZOG/fixlog/storage"
	"github.com/MZOG/fixlog/utils"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
)

// GetIntakeBuilding resolves a building's public token for the intake form.
// It exposes only what the form shows; never the internal id's owner data.
func GetIntakeBuilding(ctx iris.Context) {
	publicID := ctx.Params().Get("publicID")

	var building models.Building
	if err := storage.DB.Where("public_id = ?", publicID).First(&building).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(iris.Map{"data": iris.Map{
		"publicID": building.PublicID,
		"city":     building.City,
		"address":  building.Address,
		"name":     building.Name,
	}})
}

// SubmitAlert is the anonymous intake endpoint behind the QR code. The alert
// insert is the one thing that must succeed; photo upload and notification
// emails are best-effort and reported back as warnings.
func SubmitAlert(ctx iris.Context) {
	publicID := ctx.Params().Get("publicID")

	var input SubmitAlertInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !services.Policy.ValidCategory(input.Category) {
		utils.CreateError(iris.StatusBadRequest, "Validation error", "Unknown alert category.", ctx)
		return
	}

	var building models.Building
	if err := storage.DB.Where("public_id = ?", publicID).First(&building).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	warnings := []string{}

	// Photo first so the insert can reference its URL. A failed upload never
	// blocks the alert; an orphaned blob on the reverse failure is harmless.
	imageURL := ""
	if input.Photo != "" {
		url, uploadErr := storage.UploadBase64Image(input.Photo, "alerts/"+uuid.NewString())
		if uploadErr != nil {
			log.Printf("intake: photo upload failed for building %s: %v", building.PublicID, uploadErr)
			warnings = append(warnings, "photo upload failed")
		} else {
			imageURL = url
		}
	}

	alert := models.Alert{
		BuildingID:    building.ID,
		Title:         input.Title,
		Category:      input.Category,
		Status:        models.AlertStatusNew,
		Reporter:      input.Reporter,
		ReporterEmail: input.ReporterEmail,
		Description:   input.Description,
		Images:        imageURL,
	}

	if err := storage.DB.Create(&alert).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Post-commit notifications, never rolling back the insert.
	if input.ReporterEmail != "" {
		err := services.Mail.SendReporterConfirmation(
			input.ReporterEmail,
			"Twoje zgłoszenie zostało przyjęte: "+input.Title,
			input.Category,
			input.Description,
		)
		if err != nil {
			log.Printf("intake: reporter confirmation failed for alert %d: %v", alert.ID, err)
			warnings = append(warnings, "reporter confirmation email failed")
		}
	}

	if building.ContactEmail != "" {
		err := services.Mail.SendOwnerNotification(
			building.ContactEmail,
			"Nowe zgłoszenie w budynku: "+building.Name,
			input.Category,
			input.Description,
			input.Reporter,
			input.ReporterEmail,
		)
		if err != nil {
			log.Printf("intake: owner notification failed for alert %d: %v", alert.ID, err)
			warnings = append(warnings, "owner notification email failed")
		}
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"data": iris.Map{
		"alertID":  alert.ID,
		"warnings": warnings,
	}})
}

// ListAlerts returns every alert of the caller's buildings, enriched with
// the owning building's address, name and contact list, newest first.
func ListAlerts(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var alerts []models.Alert
	err := storage.OwnedAlerts(userID).
		Preload("Building").
		Order("alerts.created_at DESC").
		Find(&alerts).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"data": alerts})
}

// UpdateAlertStatus transitions an alert. Unknown or non-owned ids come back
// as 404 so existence is not leaked across tenants.
func UpdateAlertStatus(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var input UpdateAlertStatusInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !services.Policy.ValidStatus(input.Status) {
		utils.CreateError(iris.StatusBadRequest, "Validation error", "Unknown alert status.", ctx)
		return
	}

	var alert models.Alert
	if err := storage.OwnedAlerts(userID).Where("alerts.id = ?", id).First(&alert).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if !services.Policy.CanTransition(alert.Status, input.Status) {
		utils.CreateError(iris.StatusConflict, "Conflict",
			"Status transition not allowed by policy.", ctx)
		return
	}

	if err := storage.DB.Model(&alert).Update("status", input.Status).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"data": &alert})
}

// DeleteAlert hard-deletes an alert, by default only once it is Zakończony.
func DeleteAlert(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var alert models.Alert
	if err := storage.OwnedAlerts(userID).Where("alerts.id = ?", id).First(&alert).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if !services.Policy.CanDelete(alert.Status) {
		utils.CreateError(iris.StatusConflict, "Conflict",
			"Only finished alerts can be deleted.", ctx)
		return
	}

	if err := storage.DB.Unscoped().Delete(&alert).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"deleted": alert.ID})
}

type SubmitAlertInput struct {
	Title         string `json:"title" validate:"required,max=200"`
	Category      string `json:"category" validate:"required,max=50"`
	Reporter      string `json:"reporter" validate:"required,max=200"`
	ReporterEmail string `json:"reporter_email" validate:"omitempty,email,max=256"`
	Description   string `json:"description" validate:"max=5000"`
	Photo         string `json:"photo"` // base64 data URL, optional
}

type UpdateAlertStatusInput struct {
	Status string `json:"status" validate:"required,max=50"`
}
