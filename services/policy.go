package services

import (
	"os"
	"strconv"

	"github.com/MZOG/fixlog/models"

	"golang.org/x/exp/slices"
)

// Building deletion policies.
const (
	BuildingDeleteCascade = "cascade"
	BuildingDeleteBlock   = "block"
)

// AlertPolicy decides which status transitions and deletions are allowed.
// The original product let owners jump straight from "Nowy" to "Zakończony"
// and delete alerts in any state; both points stay configurable here.
type AlertPolicy struct {
	// EnforceStatusOrder forbids moving an alert backwards in the triage
	// order Nowy -> W trakcie -> Zakończony.
	EnforceStatusOrder bool
	// DeleteFinishedOnly restricts hard deletes to Zakończony alerts.
	DeleteFinishedOnly bool
	// BuildingDelete is cascade (alerts die with the building) or block
	// (deletion refused while alerts reference it). Never orphan-tolerant.
	BuildingDelete string
}

// Policy is the process-wide policy, loaded from the environment in main.
var Policy = defaultAlertPolicy()

func defaultAlertPolicy() AlertPolicy {
	return AlertPolicy{
		EnforceStatusOrder: false,
		DeleteFinishedOnly: true,
		BuildingDelete:     BuildingDeleteCascade,
	}
}

func InitializePolicy() {
	Policy = LoadAlertPolicy()
}

func LoadAlertPolicy() AlertPolicy {
	p := defaultAlertPolicy()
	if v, err := strconv.ParseBool(os.Getenv("ALERT_ENFORCE_STATUS_ORDER")); err == nil {
		p.EnforceStatusOrder = v
	}
	if v, err := strconv.ParseBool(os.Getenv("ALERT_DELETE_FINISHED_ONLY")); err == nil {
		p.DeleteFinishedOnly = v
	}
	if v := os.Getenv("BUILDING_DELETE_POLICY"); v == BuildingDeleteBlock {
		p.BuildingDelete = BuildingDeleteBlock
	}
	return p
}

func (p AlertPolicy) ValidStatus(status string) bool {
	return slices.Contains(models.AlertStatuses, status)
}

func (p AlertPolicy) ValidCategory(category string) bool {
	return slices.Contains(models.AlertCategories, category)
}

func (p AlertPolicy) CanTransition(from, to string) bool {
	if !p.ValidStatus(to) {
		return false
	}
	if !p.EnforceStatusOrder {
		return true
	}
	return statusRank(to) >= statusRank(from)
}

func (p AlertPolicy) CanDelete(status string) bool {
	if !p.DeleteFinishedOnly {
		return true
	}
	return status == models.AlertStatusDone
}

func statusRank(status string) int {
	return slices.Index(models.AlertStatuses, status)
}
