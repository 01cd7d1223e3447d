package service

import (
	"github.com/slotbook/slotbook-api/internal/models"
	"github.com/slotbook/slotbook-api/pkg/config"
)

// Plan identifiers known to the registry.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// PlanRegistry resolves a provider's plan id to its booking quota. Plan
// assignment itself lives with the billing system; only the lookup contract
// is owned here.
type PlanRegistry struct {
	plans    map[string]models.Plan
	fallback models.Plan
}

// NewPlanRegistry builds the registry from configuration. A quota of 0 means
// unlimited.
func NewPlanRegistry(cfg config.PlansConfig) *PlanRegistry {
	free := models.Plan{ID: PlanFree, Name: "Free", MaxAppointmentsPerMonth: cfg.FreeMonthlyLimit}
	pro := models.Plan{ID: PlanPro, Name: "Pro", MaxAppointmentsPerMonth: cfg.ProMonthlyLimit}
	return &PlanRegistry{
		plans:    map[string]models.Plan{PlanFree: free, PlanPro: pro},
		fallback: free,
	}
}

// Lookup returns the plan for the given id, falling back to the free tier for
// unknown or empty ids.
func (r *PlanRegistry) Lookup(planID string) models.Plan {
	if plan, ok := r.plans[planID]; ok {
		return plan
	}
	return r.fallback
}
