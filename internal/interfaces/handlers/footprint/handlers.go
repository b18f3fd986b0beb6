package footprint

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	fpsvc "ghg-footprint-backend/internal/application/footprint"
	"ghg-footprint-backend/internal/pkg/response"
	"ghg-footprint-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles footprint handlers with the engine service.
type Handlers struct {
	Service *fpsvc.Service
}

type calculateRequest struct {
	CompanyID   string                `json:"company_id" validate:"required,uuid"`
	Period      string                `json:"period" validate:"required,max=32"`
	CountryCode *string               `json:"country_code" validate:"omitempty,len=2,alpha"`
	Scenarios   []fpsvc.ScenarioInput `json:"scenarios" validate:"omitempty,max=20,dive"`
	Persist     *bool                 `json:"persist"`
}

type simulateRequest struct {
	CompanyID string               `json:"company_id" validate:"required,uuid"`
	Period    string               `json:"period" validate:"required,max=32"`
	Scenario  *fpsvc.ScenarioInput `json:"scenario" validate:"required"`
}

type syncRequest struct {
	Factors []fpsvc.RawFactor `json:"factors" validate:"omitempty,dive"`
	Year    *int              `json:"year" validate:"omitempty,gte=1900,lte=2100"`
}

// Calculate POST /api/v1/footprint/calculate
func (h *Handlers) Calculate(c *fiber.Ctx) error {
	var body calculateRequest
	if ok, err := bind(c, &body); !ok {
		return err
	}
	persist := true
	if body.Persist != nil {
		persist = *body.Persist
	}

	result, err := h.Service.ComputeFootprint(c.UserContext(), fpsvc.ComputeInput{
		CompanyID:   uuid.MustParse(body.CompanyID),
		Period:      body.Period,
		CountryCode: body.CountryCode,
		Scenarios:   body.Scenarios,
		Persist:     persist,
	})
	if err != nil {
		return h.fail(c, err)
	}
	if result.Persisted {
		return response.SuccessCreated(c, "Footprint calculated", result, response.WithNotes(result.Notes))
	}
	return response.Success(c, "Footprint calculated", result, response.WithNotes(result.Notes))
}

// Snapshot GET /api/v1/footprint/snapshot?company_id=&period=
func (h *Handlers) Snapshot(c *fiber.Ctx) error {
	companyID, err := uuid.Parse(c.Query("company_id"))
	if err != nil || strings.TrimSpace(c.Query("period")) == "" {
		return response.BadRequest(c, "company_id and period are required", nil)
	}
	snap, err := h.Service.GetSnapshot(c.UserContext(), companyID, c.Query("period"))
	if err != nil {
		return h.fail(c, err)
	}
	if snap == nil {
		return response.Error(c, "Snapshot not found", fiber.StatusNotFound, nil)
	}
	return response.Success(c, "Snapshot fetched", snap, response.WithNotes(fpsvc.SnapshotNotes(snap)))
}

// History GET /api/v1/footprint/history?company_id=&limit=
func (h *Handlers) History(c *fiber.Ctx) error {
	companyID, err := uuid.Parse(c.Query("company_id"))
	if err != nil {
		return response.BadRequest(c, "company_id is required", nil)
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 120 {
			return response.BadRequest(c, "limit must be between 1 and 120", nil)
		}
	}
	entries, err := h.Service.ListHistory(c.UserContext(), companyID, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, "History fetched", entries, response.Metadata{"count": len(entries)})
}

// Simulate POST /api/v1/footprint/simulate
func (h *Handlers) Simulate(c *fiber.Ctx) error {
	var body simulateRequest
	if ok, err := bind(c, &body); !ok {
		return err
	}
	result, err := h.Service.SimulateScenario(c.UserContext(), uuid.MustParse(body.CompanyID), body.Period, *body.Scenario)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, "Scenario simulated", result, nil)
}

// Factors GET /api/v1/footprint/factors?country_code=&year=
func (h *Handlers) Factors(c *fiber.Ctx) error {
	var country *string
	if cc := c.Query("country_code"); cc != "" {
		country = &cc
	}
	year := 0
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1900 || y > 2100 {
			return response.BadRequest(c, "year must be a four-digit year", nil)
		}
		year = y
	}
	set, err := h.Service.ResolveFactors(c.UserContext(), country, year)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, "Emission factors fetched", set, response.Metadata{"count": len(set.Factors)})
}

// SyncFactors POST /api/v1/footprint/factors/sync (admin key)
func (h *Handlers) SyncFactors(c *fiber.Ctx) error {
	var body syncRequest
	if len(c.Body()) > 0 {
		if ok, err := bind(c, &body); !ok {
			return err
		}
	}
	saved, err := h.Service.SyncFactors(c.UserContext(), body.Factors, body.Year)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, "Emission factors synced", saved, response.Metadata{"count": len(saved)})
}

// bind decodes and validates the body. When ok is false the 400 response
// has been written and err is the result of writing it.
func bind(c *fiber.Ctx, out interface{}) (ok bool, err error) {
	if err := c.BodyParser(out); err != nil {
		return false, response.BadRequest(c, "Invalid request body", nil)
	}
	if err := validation.Struct(out); err != nil {
		return false, response.BadRequest(c, "Invalid request body", validation.Fields(err))
	}
	return true, nil
}

// fail writes 4xx responses itself and hands server errors to the global
// error handler, which hides the cause from the client.
func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		// Logged and recorded by middleware.ErrorHandler.
		return fmt.Errorf("footprint %s: %w", c.Path(), err)
	}
	return response.Error(c, messageFor(err), code, nil)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, fpsvc.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, fpsvc.ErrNoSourceData), errors.Is(err, fpsvc.ErrSnapshotNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, fpsvc.ErrCalculationInProgress):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, fpsvc.ErrNoSourceData):
		return "No metrics or ingestion data for this period"
	case errors.Is(err, fpsvc.ErrSnapshotNotFound):
		return "Snapshot not found"
	case errors.Is(err, fpsvc.ErrCalculationInProgress):
		return "A calculation for this period is already in progress"
	default:
		return err.Error()
	}
}
