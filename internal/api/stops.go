package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"tripmate/internal/model"
)

// CreateStopRequest is the body of a stop creation.
type CreateStopRequest struct {
	PlanID int64 `json:"planId"`
	model.NewStop
}

// UpdateStopRequest is the body of a stop edit.
type UpdateStopRequest struct {
	PlanID int64 `json:"planId"`
	model.StopUpdate
}

// StopDatesRequest is the body of a batch stop date change.
type StopDatesRequest struct {
	Dates map[int64]string `json:"dates"`
}

// StopDatesResponse reports how many stops a batch date change touched.
type StopDatesResponse struct {
	Updated int `json:"updated"`
}

func planQuery(planID int64) url.Values {
	return url.Values{"planId": {strconv.FormatInt(planID, 10)}}
}

// ListStops returns the flat stop list of a plan.
func (c *Client) ListStops(ctx context.Context, planID int64) ([]model.Stop, error) {
	stops := []model.Stop{}
	if err := c.do(ctx, "list stops", http.MethodGet, "/detail-plan", planQuery(planID), nil, &stops); err != nil {
		return nil, err
	}
	return stops, nil
}

// CreateStop adds a stop to a plan.
func (c *Client) CreateStop(ctx context.Context, planID int64, ns model.NewStop) (model.Stop, error) {
	var s model.Stop
	err := c.do(ctx, "create stop", http.MethodPost, "/detail-plan", nil,
		CreateStopRequest{PlanID: planID, NewStop: ns}, &s)
	return s, err
}

// UpdateStop edits the given fields of a stop.
func (c *Client) UpdateStop(ctx context.Context, planID, stopID int64, upd model.StopUpdate) (model.Stop, error) {
	var s model.Stop
	err := c.do(ctx, "update stop", http.MethodPut, fmt.Sprintf("/detail-plan/%d", stopID), nil,
		UpdateStopRequest{PlanID: planID, StopUpdate: upd}, &s)
	return s, err
}

// DeleteStop removes a stop and returns its ID.
func (c *Client) DeleteStop(ctx context.Context, planID, stopID int64) (int64, error) {
	var out DeleteResponse
	if err := c.do(ctx, "delete stop", http.MethodDelete, fmt.Sprintf("/detail-plan/%d", stopID), planQuery(planID), nil, &out); err != nil {
		return 0, err
	}
	if out.ID == 0 {
		out.ID = stopID
	}
	return out.ID, nil
}

// UpdateStopDates moves many stops in one transaction on the backend.
func (c *Client) UpdateStopDates(ctx context.Context, planID int64, dates map[int64]string) error {
	var out StopDatesResponse
	return c.do(ctx, "update stop dates", http.MethodPut, fmt.Sprintf("/plan/%d/stop-dates", planID), nil,
		StopDatesRequest{Dates: dates}, &out)
}

// GetMapDocument returns the server-rendered HTML map of a plan.
func (c *Client) GetMapDocument(ctx context.Context, planID int64) ([]byte, error) {
	const op = "get map"
	resp, err := c.send(ctx, op, http.MethodGet, fmt.Sprintf("/map/%d", planID), nil, nil, "text/html")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	return data, nil
}
