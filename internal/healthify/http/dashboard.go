package http

import (
	"net/http"

	"github.com/aussiebroadwan/healthify/internal/healthify/service"
	"github.com/aussiebroadwan/healthify/pkg/httpx"
)

type DashboardHandler struct {
	DashboardService *service.DashboardService
}

// HandleGet returns today's dashboard.
//
//	@Summary		Dashboard
//	@Description	Calories by meal section, water, weight history, BMI and device activity for today.
//	@Tags			Dashboard
//	@Produce		json
//	@Success		200	{object}	service.Dashboard
//	@Failure		401	{object}	httpx.ErrorResponse	"Not signed in"
//	@Failure		503	{object}	httpx.ErrorResponse	"Session not resolved yet"
//	@Router			/v1/dashboard [get].
func (h *DashboardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.DashboardService.Dashboard(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

// HandleUpdateProfile saves age, gender, height and weight.
//
//	@Summary		Update profile
//	@Description	All four fields are required. Gender is male, female or other. The weight is also appended to the history.
//	@Tags			Dashboard
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ProfileRequest	true	"Profile"
//	@Success		200		{object}	ProfileResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"Invalid profile"
//	@Failure		401		{object}	httpx.ErrorResponse	"Not signed in"
//	@Router			/v1/profile [put].
func (h *DashboardHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	p, err := h.DashboardService.UpdateProfile(r.Context(), userID(r), service.ProfileUpdate{
		Age:      req.Age,
		Gender:   req.Gender,
		HeightCM: req.HeightCM,
		WeightKG: req.WeightKG,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ProfileResponse{
		Profile: service.ViewProfile(p),
		BMI:     service.ComputeBMI(p.HeightCM, p.WeightKG),
	})
}

// HandleAddWater adds to today's water intake.
//
//	@Summary		Log water
//	@Description	Adds amount_ml to today's intake. The total never exceeds the daily goal.
//	@Tags			Dashboard
//	@Accept			json
//	@Produce		json
//	@Param			request	body		WaterRequest	true	"Amount in ml"
//	@Success		200		{object}	WaterResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"Amount must be positive"
//	@Failure		401		{object}	httpx.ErrorResponse	"Not signed in"
//	@Router			/v1/water [post].
func (h *DashboardHandler) HandleAddWater(w http.ResponseWriter, r *http.Request) {
	var req WaterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	total, err := h.DashboardService.AddWater(r.Context(), userID(r), req.AmountML)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, WaterResponse{AmountML: total, GoalML: h.DashboardService.WaterGoal()})
}

// HandleAddMeal logs a food item for today.
//
//	@Summary		Log meal
//	@Description	Section is one of morningSnacks, breakfast, lunch, eveningSnacks, dinner.
//	@Tags			Dashboard
//	@Accept			json
//	@Produce		json
//	@Param			request	body		MealRequest	true	"Meal"
//	@Success		201		{object}	MealResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"Invalid meal"
//	@Failure		401		{object}	httpx.ErrorResponse	"Not signed in"
//	@Router			/v1/meals [post].
func (h *DashboardHandler) HandleAddMeal(w http.ResponseWriter, r *http.Request) {
	var req MealRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	meal, err := h.DashboardService.AddMeal(r.Context(), userID(r), req.Section, req.Name, req.Calories)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, mealResponse(meal))
}

// HandleDeleteMeal removes a logged meal.
//
//	@Summary		Delete meal
//	@Tags			Dashboard
//	@Param			id	path	string	true	"Meal ID"
//	@Success		204
//	@Failure		401	{object}	httpx.ErrorResponse	"Not signed in"
//	@Failure		404	{object}	httpx.ErrorResponse	"Meal not found"
//	@Router			/v1/meals/{id} [delete].
func (h *DashboardHandler) HandleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	if err := h.DashboardService.DeleteMeal(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
