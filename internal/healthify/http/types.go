package http

import (
	"time"

	"github.com/aussiebroadwan/healthify/internal/healthify/domain"
	"github.com/aussiebroadwan/healthify/internal/healthify/service"
	"github.com/aussiebroadwan/healthify/internal/healthify/session"
)

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the readiness of each dependency.
type HealthChecks struct {
	Database string `json:"database"`
	Session  string `json:"session"`
}

// SessionResponse mirrors session.State.
type SessionResponse struct {
	IsReady  bool          `json:"is_ready"`
	SignedIn bool          `json:"signed_in"`
	User     *session.User `json:"user"`
}

func sessionResponse(st session.State) SessionResponse {
	return SessionResponse{IsReady: st.IsReady, SignedIn: st.SignedIn(), User: st.User}
}

// LoginRequest is the body of POST /v1/session/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupRequest is the body of POST /v1/session/signup.
type SignupRequest struct {
	InviteToken string `json:"invite_token"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// MFARequiredResponse is returned with 409 when the account has a second factor.
type MFARequiredResponse struct {
	Error      string   `json:"error"`
	MFAToken   string   `json:"mfa_token"`
	MFAMethods []string `json:"mfa_methods"`
}

// MFARequest is the body of POST /v1/session/mfa.
type MFARequest struct {
	MFAToken string `json:"mfa_token"`
	Method   string `json:"method"`
	Code     string `json:"code"`
}

// ProfileRequest is the body of PUT /v1/profile.
type ProfileRequest struct {
	Age      int     `json:"age"`
	Gender   string  `json:"gender"`
	HeightCM float64 `json:"height_cm"`
	WeightKG float64 `json:"weight_kg"`
}

// ProfileResponse is the saved profile plus its BMI.
type ProfileResponse struct {
	Profile service.ProfileView `json:"profile"`
	BMI     *service.BMI        `json:"bmi"`
}

// WaterRequest is the body of POST /v1/water.
type WaterRequest struct {
	AmountML int `json:"amount_ml"`
}

// WaterResponse carries today's total after the add.
type WaterResponse struct {
	AmountML int `json:"amount_ml"`
	GoalML   int `json:"goal_ml"`
}

// MealRequest is the body of POST /v1/meals.
type MealRequest struct {
	Section  string `json:"section"`
	Name     string `json:"name"`
	Calories int    `json:"calories"`
}

// MealResponse is a logged meal.
type MealResponse struct {
	ID        string             `json:"id"`
	Section   domain.MealSection `json:"section"`
	Name      string             `json:"name"`
	Calories  int                `json:"calories"`
	Day       string             `json:"day"`
	CreatedAt time.Time          `json:"created_at"`
}

func mealResponse(m domain.Meal) MealResponse {
	return MealResponse{
		ID:        m.ID,
		Section:   m.Section,
		Name:      m.Name,
		Calories:  m.Calories,
		Day:       m.Day,
		CreatedAt: m.CreatedAt,
	}
}

// SampleRequest is one device reading.
type SampleRequest struct {
	Kind       string    `json:"kind"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SamplesRequest is the body of POST /v1/activity/samples.
type SamplesRequest struct {
	Samples []SampleRequest `json:"samples"`
}

// SamplesResponse reports how many samples were stored.
type SamplesResponse struct {
	Accepted int `json:"accepted"`
}

// AuthorizationRequest is the body of PUT /v1/activity/authorization.
type AuthorizationRequest struct {
	Authorized bool `json:"authorized"`
}

// AuthorizationResponse echoes the stored answer.
type AuthorizationResponse struct {
	Authorized bool `json:"authorized"`
}

// ChatRequest is the body of POST /v1/chat/messages.
type ChatRequest struct {
	Text string `json:"text"`
}

// ChatResponse returns the user's message and the assistant's reply.
type ChatResponse struct {
	Message domain.ChatMessage `json:"message"`
	Reply   domain.ChatMessage `json:"reply"`
}

// ChatHistoryResponse is the transcript, oldest first.
type ChatHistoryResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
}
