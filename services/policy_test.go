package services

import (
	"os"
	"testing"

	"github.com/MZOG/fixlog/models"
)

func TestAlertPolicyDefaults(t *testing.T) {
	p := defaultAlertPolicy()

	// The original product allows jumping straight to done and backwards.
	if !p.CanTransition(models.AlertStatusNew, models.AlertStatusDone) {
		t.Fatalf("default policy must allow Nowy -> Zakończony")
	}
	if !p.CanTransition(models.AlertStatusDone, models.AlertStatusNew) {
		t.Fatalf("default policy must allow reopening")
	}
	if p.CanTransition(models.AlertStatusNew, "Zrobione") {
		t.Fatalf("unknown status must never be allowed")
	}

	if p.CanDelete(models.AlertStatusNew) || p.CanDelete(models.AlertStatusInProgress) {
		t.Fatalf("default policy deletes finished alerts only")
	}
	if !p.CanDelete(models.AlertStatusDone) {
		t.Fatalf("finished alerts must be deletable")
	}
}

func TestAlertPolicyEnforcedOrder(t *testing.T) {
	p := AlertPolicy{EnforceStatusOrder: true}

	if !p.CanTransition(models.AlertStatusNew, models.AlertStatusInProgress) {
		t.Fatalf("forward transition must be allowed")
	}
	if !p.CanTransition(models.AlertStatusNew, models.AlertStatusDone) {
		t.Fatalf("skipping forward must be allowed")
	}
	if p.CanTransition(models.AlertStatusDone, models.AlertStatusNew) {
		t.Fatalf("backwards transition must be rejected under enforced order")
	}
	if !p.CanTransition(models.AlertStatusInProgress, models.AlertStatusInProgress) {
		t.Fatalf("setting the same status again must be allowed")
	}
}

func TestLoadAlertPolicyFromEnv(t *testing.T) {
	t.Setenv("ALERT_ENFORCE_STATUS_ORDER", "true")
	t.Setenv("ALERT_DELETE_FINISHED_ONLY", "false")
	t.Setenv("BUILDING_DELETE_POLICY", "block")

	p := LoadAlertPolicy()
	if !p.EnforceStatusOrder {
		t.Fatalf("ALERT_ENFORCE_STATUS_ORDER not honored")
	}
	if p.DeleteFinishedOnly {
		t.Fatalf("ALERT_DELETE_FINISHED_ONLY not honored")
	}
	if p.BuildingDelete != BuildingDeleteBlock {
		t.Fatalf("BUILDING_DELETE_POLICY not honored: %q", p.BuildingDelete)
	}

	os.Unsetenv("BUILDING_DELETE_POLICY")
	if LoadAlertPolicy().BuildingDelete != BuildingDeleteCascade {
		t.Fatalf("missing BUILDING_DELETE_POLICY must default to cascade")
	}
}

func TestAlertPolicyCategories(t *testing.T) {
	p := defaultAlertPolicy()
	for _, category := range models.AlertCategories {
		if !p.ValidCategory(category) {
			t.Fatalf("category %q should be valid", category)
		}
	}
	if p.ValidCategory("Ogrzewanie") {
		t.Fatalf("unknown category accepted")
	}
}
