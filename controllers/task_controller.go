package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/careping/checkin"
	"github.com/cppla/careping/models"
	"github.com/cppla/careping/utils"
)

// TaskController manages task definitions.
type TaskController struct {
	svc *checkin.Service
}

func NewTaskController(svc *checkin.Service) *TaskController {
	return &TaskController{svc: svc}
}

type taskRequest struct {
	UserID     uint      `json:"user_id"`
	Title      string    `json:"title" binding:"required"`
	RemindAt   time.Time `json:"remind_at" binding:"required"`
	RepeatType string    `json:"repeat_type" binding:"required"`
}

func (r taskRequest) input() checkin.TaskInput {
	return checkin.TaskInput{
		UserID:     r.UserID,
		Title:      utils.Sanitize(r.Title),
		RemindAt:   r.RemindAt,
		RepeatType: models.RepeatType(r.RepeatType),
	}
}

// List returns tasks assigned to and created by the caller.
func (c *TaskController) List(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	assigned, created, err := c.svc.Tasks(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"assigned": assigned, "created": created})
}

func (c *TaskController) Create(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req taskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	task, err := c.svc.CreateTask(ctx.Request.Context(), userID, req.input())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "created", task)
}

func (c *TaskController) Update(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	taskID, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req taskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid request payload")
		return
	}
	task, err := c.svc.UpdateTask(ctx.Request.Context(), userID, taskID, req.input())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, task)
}

func (c *TaskController) Disable(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	taskID, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.svc.DisableTask(ctx.Request.Context(), userID, taskID); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": taskID, "enabled": false})
}
