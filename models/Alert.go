package models

import (
	"gorm.io/gorm"
)

// Alert statuses. Triage flows Nowy -> W trakcie -> Zakonczony but the
// transition policy is configurable (see services.AlertPolicy).
const (
	AlertStatusNew        = "Nowy"
	AlertStatusInProgress = "W trakcie"
	AlertStatusDone       = "Zakończony"
)

// Alert categories selectable on the intake form.
var AlertCategories = []string{"Awaria", "Usterka", "Prąd", "Woda", "Inne"}

// AlertStatuses lists every valid status value.
var AlertStatuses = []string{AlertStatusNew, AlertStatusInProgress, AlertStatusDone}

type Alert struct {
	gorm.Model
	BuildingID    uint   `json:"buildingID" gorm:"index;not null"`
	Title         string `json:"title" gorm:"size:200;not null"`
	Category      string `json:"category" gorm:"size:50;index"`
	Status        string `json:"status" gorm:"size:50;default:'Nowy';index"`
	Reporter      string `json:"reporter" gorm:"size:200"`
	ReporterEmail string `json:"reporterEmail" gorm:"size:256"`
	Description   string `json:"description" gorm:"type:text"`
	Images        string `json:"images"` // single optional photo URL

	Building *Building `json:"building,omitempty" gorm:"foreignKey:BuildingID"`
}
