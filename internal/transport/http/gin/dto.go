package httpgin

import (
	"github.com/kirinyoku/courtside/internal/domain"
)

type ToggleRequest struct {
	Date    string `json:"date" binding:"required"`
	FieldID int64  `json:"field_id" binding:"required,gt=0"`
	PriceID int64  `json:"price_id" binding:"required,gt=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ScheduleResponse struct {
	Date     string                 `json:"date"`
	Slots    []domain.AnnotatedSlot `json:"slots"`
	Warnings []string               `json:"warnings,omitempty"`
}

type OptionsResponse struct {
	Dates  []domain.Option `json:"dates"`
	Times  []domain.Option `json:"times"`
	Fields []domain.Option `json:"fields"`
}

type ToggleResponse struct {
	Action domain.Action `json:"action"`
}

type ActionsResponse struct {
	Actions []domain.Action `json:"actions"`
}
