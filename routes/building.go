package routes

import (
	"encoding/json"

	"github.com/MZOG/fixlog/models"
	"github.com/MZOG/fixlog/services"
	"github.com/MZOG/fixlog/storage"
	"github.com/MZOG/fixlog/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateBuilding registers a building for the authenticated owner and mints
// its public token. The caller is expected to follow up with a billing sync.
func CreateBuilding(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var input CreateBuildingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	building := models.Building{
		OwnerID:      userID,
		PublicID:     utils.GenerateShortToken(4),
		City:         input.City,
		Address:      input.Address,
		Name:         input.Name,
		ContactName:  input.ContactName,
		ContactEmail: input.ContactEmail,
		QRCodeData:   input.QRCodeData,
		Contacts:     marshalContacts(input.Contacts),
	}

	if err := storage.DB.Create(&building).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"data": &building})
}

// ListBuildings returns the caller's buildings, newest first.
func ListBuildings(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var buildings []models.Building
	if err := storage.OwnedBuildings(userID).Order("created_at DESC").Find(&buildings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"data": buildings})
}

// GetBuilding returns one of the caller's buildings by public token.
func GetBuilding(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	publicID := ctx.Params().Get("publicID")

	var building models.Building
	if err := storage.OwnedBuildings(userID).Where("public_id = ?", publicID).First(&building).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(iris.Map{"data": &building})
}

// UpdateBuilding updates a building's details, contact list and QR payload.
// Only the owner can reach the row; everyone else gets a 404.
func UpdateBuilding(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	publicID := ctx.Params().Get("publicID")

	var building models.Building
	if err := storage.OwnedBuildings(userID).Where("public_id = ?", publicID).First(&building).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var input UpdateBuildingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	building.City = input.City
	building.Address = input.Address
	building.Name = input.Name
	building.ContactName = input.ContactName
	building.ContactEmail = input.ContactEmail
	building.Contacts = marshalContacts(input.Contacts)
	if input.QRCodeData != "" {
		building.QRCodeData = input.QRCodeData
	}

	if err := storage.DB.Save(&building).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"data": &building})
}

// DeleteBuilding removes one of the caller's buildings. Depending on policy
// the building's alerts are deleted with it (cascade) or the request is
// refused while alerts reference it (block). Alerts are never orphaned.
func DeleteBuilding(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var building models.Building
	if err := storage.OwnedBuildings(userID).Where("buildings.id = ?", id).First(&building).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var alertCount int64
	if err := storage.DB.Model(&models.Alert{}).Where("building_id = ?", building.ID).Count(&alertCount).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if services.Policy.BuildingDelete == services.BuildingDeleteBlock && alertCount > 0 {
		utils.CreateError(iris.StatusConflict, "Conflict",
			"Building still has alerts; resolve or delete them first.", ctx)
		return
	}

	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("building_id = ?", building.ID).Delete(&models.Alert{}).Error; err != nil {
			return err
		}
		return tx.Delete(&building).Error
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"deleted": building.ID})
}

func marshalContacts(contacts []models.BuildingContact) datatypes.JSON {
	if contacts == nil {
		contacts = []models.BuildingContact{}
	}
	raw, _ := json.Marshal(contacts)
	return datatypes.JSON(raw)
}

type CreateBuildingInput struct {
	City         string                   `json:"city" validate:"required,max=120"`
	Address      string                   `json:"address" validate:"required,max=256"`
	Name         string                   `json:"name" validate:"required,max=200"`
	ContactName  string                   `json:"contactName" validate:"required,max=200"`
	ContactEmail string                   `json:"contactEmail" validate:"required,email,max=256"`
	Contacts     []models.BuildingContact `json:"contacts"`
	QRCodeData   string                   `json:"qrCodeData"`
}

type UpdateBuildingInput struct {
	City         string                   `json:"city" validate:"required,max=120"`
	Address      string                   `json:"address" validate:"required,max=256"`
	Name         string                   `json:"name" validate:"required,max=200"`
	ContactName  string                   `json:"contactName" validate:"required,max=200"`
	ContactEmail string                   `json:"contactEmail" validate:"required,email,max=256"`
	Contacts     []models.BuildingContact `json:"contacts"`
	QRCodeData   string                   `json:"qrCodeData"`
}
