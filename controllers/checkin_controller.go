package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/careping/checkin"
	"github.com/cppla/careping/models"
	"github.com/cppla/careping/utils"
)

// CheckInController serves check-ins and attendance dashboards.
type CheckInController struct {
	svc *checkin.Service
}

func NewCheckInController(svc *checkin.Service) *CheckInController {
	return &CheckInController{svc: svc}
}

// CheckIn records a check-in for the caller at the current time.
func (c *CheckInController) CheckIn(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req struct {
		TaskID uint `json:"task_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	rec, err := c.svc.DoCheckIn(ctx.Request.Context(), userID, req.TaskID, c.svc.Now())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, rec)
}

// Daily lists the caller's occurrences for a date, today by default.
func (c *CheckInController) Daily(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	now := c.svc.Now()
	date := now
	if raw := ctx.Query("date"); raw != "" {
		d, err := time.ParseInLocation(models.DateLayout, raw, now.Location())
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40021, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}
	creatorID, ok := optionalUint(ctx, "creator_id")
	if !ok {
		return
	}

	items, err := c.svc.DailyStatus(ctx.Request.Context(), userID, date, creatorID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"date": date.Format(models.DateLayout), "items": items})
}

// Stats returns the caller's streaks and counts.
func (c *CheckInController) Stats(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	st, err := c.svc.Stats(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, st)
}

// Supervised shows today's state of everyone the caller supervises.
func (c *CheckInController) Supervised(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	partners, err := c.svc.SupervisedStatus(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, partners)
}
