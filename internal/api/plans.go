package api

import (
	"context"
	"fmt"
	"net/http"

	"tripmate/internal/model"
)

// DatesRequest is the body of a plan date range change.
type DatesRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// DeleteResponse echoes the ID of a deleted record.
type DeleteResponse struct {
	ID int64 `json:"id"`
}

// ListPlans returns every plan.
func (c *Client) ListPlans(ctx context.Context) ([]model.Plan, error) {
	plans := []model.Plan{}
	if err := c.do(ctx, "list plans", http.MethodGet, "/plan", nil, nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// GetTrip returns a single plan.
func (c *Client) GetTrip(ctx context.Context, planID int64) (model.Plan, error) {
	var p model.Plan
	err := c.do(ctx, "get plan", http.MethodGet, fmt.Sprintf("/plan/%d", planID), nil, nil, &p)
	return p, err
}

// CreatePlan creates a plan.
func (c *Client) CreatePlan(ctx context.Context, np model.NewPlan) (model.Plan, error) {
	var p model.Plan
	err := c.do(ctx, "create plan", http.MethodPost, "/plan", nil, np, &p)
	return p, err
}

// UpdatePlan edits a plan's descriptive fields.
func (c *Client) UpdatePlan(ctx context.Context, planID int64, up model.UpdatePlan) (model.Plan, error) {
	var p model.Plan
	err := c.do(ctx, "update plan", http.MethodPut, fmt.Sprintf("/plan/%d", planID), nil, up, &p)
	return p, err
}

// UpdateTripDates persists a plan's date range. Stops are not touched.
func (c *Client) UpdateTripDates(ctx context.Context, planID int64, start, end string) error {
	return c.do(ctx, "update plan dates", http.MethodPut, fmt.Sprintf("/plan/%d/dates", planID), nil,
		DatesRequest{StartDate: start, EndDate: end}, nil)
}

// DeletePlan removes a plan and all of its stops.
func (c *Client) DeletePlan(ctx context.Context, planID int64) error {
	return c.do(ctx, "delete plan", http.MethodDelete, fmt.Sprintf("/plan/%d", planID), nil, nil, nil)
}
