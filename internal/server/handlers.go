package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tripmate/internal/api"
	"tripmate/internal/db"
	"tripmate/internal/itinerary"
	"tripmate/internal/model"
)

// fail maps an error to a JSON error response.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errValidation):
		status = http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("%s must be a positive integer", name)
	}
	return id, nil
}

func planIDQuery(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Query("planId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("planId must be a positive integer")
	}
	return id, nil
}

func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return invalid("malformed body: %v", err)
	}
	return nil
}

// listPlans handles GET /plan.
func (s *Server) listPlans(c *gin.Context) {
	plans, err := db.ListPlans(s.db)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// getPlan handles GET /plan/:id.
func (s *Server) getPlan(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	plan, err := db.GetPlan(s.db, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// createPlan handles POST /plan.
func (s *Server) createPlan(c *gin.Context) {
	var np model.NewPlan
	if err := bind(c, &np); err != nil {
		s.fail(c, err)
		return
	}
	np.Place = strings.TrimSpace(np.Place)
	if err := validatePlan(np); err != nil {
		s.fail(c, err)
		return
	}
	id, err := db.InsertPlan(s.db, np)
	if err != nil {
		s.fail(c, err)
		return
	}
	plan, err := db.GetPlan(s.db, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// updatePlan handles PUT /plan/:id.
func (s *Server) updatePlan(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var up model.UpdatePlan
	if err := bind(c, &up); err != nil {
		s.fail(c, err)
		return
	}
	up.Place = strings.TrimSpace(up.Place)
	if up.Place == "" {
		s.fail(c, invalid("place is required"))
		return
	}
	if err := db.UpdatePlan(s.db, id, up); err != nil {
		s.fail(c, err)
		return
	}
	s.getPlan(c)
}

// updatePlanDates handles PUT /plan/:id/dates. Stops are left as they are.
func (s *Server) updatePlanDates(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var req api.DatesRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if err := validateRange(req.StartDate, req.EndDate); err != nil {
		s.fail(c, err)
		return
	}
	if err := db.UpdatePlanDates(s.db, id, req.StartDate, req.EndDate); err != nil {
		s.fail(c, err)
		return
	}
	s.getPlan(c)
}

// deletePlan handles DELETE /plan/:id.
func (s *Server) deletePlan(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := db.DeletePlan(s.db, id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.DeleteResponse{ID: id})
}

// updateStopDates handles PUT /plan/:id/stop-dates, moving many stops atomically.
func (s *Server) updateStopDates(c *gin.Context) {
	planID, err := idParam(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var req api.StopDatesRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	for id, date := range req.Dates {
		if _, err := itinerary.ParseDate(date); err != nil {
			s.fail(c, invalid("stop %d: date %q must be YYYY-MM-DD", id, date))
			return
		}
	}
	if _, err := db.GetPlan(s.db, planID); err != nil {
		s.fail(c, err)
		return
	}
	n, err := db.UpdateStopDates(s.db, planID, req.Dates)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.StopDatesResponse{Updated: n})
}

// listStops handles GET /detail-plan?planId=.
func (s *Server) listStops(c *gin.Context) {
	planID, err := planIDQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if _, err := db.GetPlan(s.db, planID); err != nil {
		s.fail(c, err)
		return
	}
	stops, err := db.ListStops(s.db, planID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stops)
}

// createStop handles POST /detail-plan. The date must fall within the plan.
func (s *Server) createStop(c *gin.Context) {
	var req api.CreateStopRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	plan, err := db.GetPlan(s.db, req.PlanID)
	if err != nil {
		s.fail(c, err)
		return
	}
	candidate := model.Stop{PlanID: plan.ID, Location: req.Location, Date: req.Date, Time: req.Time}
	if err := validateStop(candidate); err != nil {
		s.fail(c, err)
		return
	}
	if !itinerary.InRange(req.Date, plan.StartDate, plan.EndDate) {
		s.fail(c, invalid("date %s is outside the plan (%s to %s)", req.Date, plan.StartDate, plan.EndDate))
		return
	}
	id, err := db.InsertStop(s.db, plan.ID, req.NewStop)
	if err != nil {
		s.fail(c, err)
		return
	}
	stop, err := db.GetStop(s.db, plan.ID, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, stop)
}

// updateStop handles PUT /detail-plan/:id. Only the fields present in the body change.
// Dates are not checked against the plan range, since a range edit moves stops
// before the plan itself.
func (s *Server) updateStop(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var req api.UpdateStopRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	current, err := db.GetStop(s.db, req.PlanID, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	updated := req.StopUpdate.Apply(current)
	if err := validateStop(updated); err != nil {
		s.fail(c, err)
		return
	}
	if err := db.UpdateStop(s.db, updated); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// deleteStop handles DELETE /detail-plan/:id?planId=.
func (s *Server) deleteStop(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	planID, err := planIDQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := db.DeleteStop(s.db, planID, id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.DeleteResponse{ID: id})
}
