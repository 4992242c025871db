package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BuildingContact is one entry of a building's ordered contact list
// (e.g. plumber, electrician), stored as JSONB.
type BuildingContact struct {
	Label string `json:"label"`
	Phone string `json:"phone"`
}

type Building struct {
	gorm.Model
	OwnerID      uint           `json:"ownerID" gorm:"index;not null"`
	PublicID     string         `json:"publicID" gorm:"uniqueIndex;size:32;not null"`
	City         string         `json:"city"`
	Address      string         `json:"address"`
	Name         string         `json:"name"`
	ContactName  string         `json:"contactName"`
	ContactEmail string         `json:"contactEmail"`
	Contacts     datatypes.JSON `json:"contacts" gorm:"type:jsonb"`
	QRCodeData   string         `json:"qrCodeData" gorm:"column:qr_code_data;type:text"`
	Alerts       []Alert        `json:"alerts,omitempty" gorm:"foreignKey:BuildingID;references:ID"`
	Owner        *User          `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
}

// ContactList decodes the JSONB contacts column, preserving order.
func (b *Building) ContactList() []BuildingContact {
	if b.Contacts == nil {
		return []BuildingContact{}
	}
	var contacts []BuildingContact
	if err := json.Unmarshal(b.Contacts, &contacts); err != nil {
		return []BuildingContact{}
	}
	return contacts
}

// Custom JSON marshaling to expose contacts as an array instead of raw JSONB
func (b *Building) MarshalJSON() ([]byte, error) {
	type Alias Building
	aux := &struct {
		Contacts []BuildingContact `json:"contacts"`
		Owner    *User             `json:"owner,omitempty"`
		*Alias
	}{
		Contacts: b.ContactList(),
		Alias:    (*Alias)(b),
	}
	// Avoid circular reference through Owner.Buildings
	if b.Owner != nil && b.Owner.ID > 0 {
		ownerCopy := *b.Owner
		ownerCopy.Buildings = nil
		aux.Owner = &ownerCopy
	}
	return json.Marshal(aux)
}
